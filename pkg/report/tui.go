package report

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

const countColumnWidth = 8

// TUI shows the latest report as a full-screen terminal table.
type TUI struct {
	mu    sync.Mutex
	table *widgets.Table
}

// NewTUI takes over the terminal. Call Close to restore it.
func NewTUI() (*TUI, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	table := widgets.NewTable()
	table.Title = "waiting for first sample"
	table.TextStyle = ui.NewStyle(ui.ColorWhite)
	table.BorderStyle.Fg = ui.ColorGreen
	table.RowSeparator = false
	table.FillRow = true
	table.RowStyles[0] = ui.NewStyle(ui.ColorYellow, ui.ColorClear, ui.ModifierBold)
	table.Rows = tableRows(Report{})

	t := &TUI{table: table}
	width, height := ui.TerminalDimensions()
	t.resize(width, height)
	ui.Render(t.table)
	return t, nil
}

// Emit redraws the table with r.
func (t *TUI) Emit(r Report) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.table.Title = r.Header()
	t.table.Rows = tableRows(r)
	ui.Render(t.table)
	return nil
}

// Run handles keyboard and resize events until ctx is done. Pressing q or
// Ctrl-C calls stop.
func (t *TUI) Run(ctx context.Context, stop context.CancelFunc) {
	events := ui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			if e.Type == ui.KeyboardEvent && (e.ID == "q" || e.ID == "<C-c>") {
				stop()
				return
			}
			if e.Type == ui.ResizeEvent {
				payload := e.Payload.(ui.Resize)
				t.mu.Lock()
				t.resize(payload.Width, payload.Height)
				ui.Clear()
				ui.Render(t.table)
				t.mu.Unlock()
			}
		}
	}
}

// Close restores the terminal.
func (t *TUI) Close() {
	ui.Close()
}

func (t *TUI) resize(width, height int) {
	t.table.SetRect(0, 0, width, height)
	shapeWidth := width - countColumnWidth - 2
	if shapeWidth < 1 {
		shapeWidth = 1
	}
	t.table.ColumnWidths = []int{countColumnWidth, shapeWidth}
}

func tableRows(r Report) [][]string {
	rows := make([][]string, 0, len(r.Entries)+1)
	rows = append(rows, []string{"count", "query"})
	for _, e := range r.Entries {
		rows = append(rows, []string{strconv.FormatInt(e.Count, 10), e.Shape})
	}
	return rows
}
