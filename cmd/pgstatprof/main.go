package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"pgstatprof/pkg/activity"
	"pgstatprof/pkg/metrics"
	"pgstatprof/pkg/profiler"
	"pgstatprof/pkg/report"
	"pgstatprof/pkg/server"
	"pgstatprof/pkg/summary"

	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Conn      activity.ConnOptions
	Container string
	Last      int
	Profile   profiler.Config
	Listen    string
	TUI       bool
}

func main() {
	config, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(1)
	}

	setupLogging(config.TUI)

	if err := run(config); err != nil && !profiler.IsInterrupted(err) {
		slog.Error("profiler stopped", "error", err)
		os.Exit(1)
	}
}

// parseFlags reads the command line. On error it has already printed the
// problem and the usage text to stderr.
func parseFlags(args []string, stderr io.Writer) (Config, error) {
	config := Config{Profile: profiler.DefaultConfig()}
	var noNormalize bool

	fs := flag.NewFlagSet("pgstatprof", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&config.Conn.Host, "host", "localhost", "postgresql hostname")
	fs.StringVar(&config.Conn.Host, "h", "localhost", "shorthand for -host")
	fs.StringVar(&config.Conn.User, "user", currentUser(), "postgresql user")
	fs.StringVar(&config.Conn.User, "u", currentUser(), "shorthand for -user")
	fs.StringVar(&config.Conn.Password, "password", "", "postgresql password")
	fs.StringVar(&config.Conn.Password, "p", "", "shorthand for -password")
	fs.IntVar(&config.Conn.Port, "port", 5432, "postgresql port")
	fs.StringVar(&config.Conn.Database, "database", "", "database name")
	fs.StringVar(&config.Conn.SSLMode, "sslmode", "disable", "postgresql sslmode")
	fs.StringVar(&config.Container, "container", "", "resolve host and port from the Docker container publishing postgres")

	fs.IntVar(&config.Profile.Top, "top", config.Profile.Top, "print top N queries")
	fs.IntVar(&config.Last, "last", 0, "summarize the last N samples; 0 summarizes all samples")
	fs.Float64Var(&config.Profile.Interval, "interval", config.Profile.Interval, "sampling interval in seconds")
	fs.Float64Var(&config.Profile.Interval, "i", config.Profile.Interval, "shorthand for -interval")
	fs.IntVar(&config.Profile.Delay, "delay", config.Profile.Delay, "show a summary every `N` samples; -interval=0.1 -delay=30 shows one every 3s")
	fs.BoolVar(&config.Profile.Diff, "diff", false, "only print a summary when the set of queries changed")
	fs.BoolVar(&noNormalize, "no-normalize", false, "count raw statements instead of normalized shapes")

	fs.StringVar(&config.Listen, "listen", "", "serve the latest report, a WebSocket stream and metrics on this address")
	fs.BoolVar(&config.TUI, "tui", false, "show the report as a full-screen table")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pgstatprof [options]\n\n")
		fmt.Fprintf(stderr, "Sample pg_stat_activity and report the most frequent queries.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return config, err
	}
	config.Profile.Normalize = !noNormalize

	if err := validate(config, fs.Args()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		fs.Usage()
		return config, err
	}
	return config, nil
}

func validate(config Config, rest []string) error {
	if len(rest) > 0 {
		return fmt.Errorf("unexpected arguments: %v", rest)
	}
	if config.Last < 0 {
		return fmt.Errorf("last must not be negative, got %d", config.Last)
	}
	if config.Conn.Port < 1 || config.Conn.Port > 65535 {
		return fmt.Errorf("invalid port %d", config.Conn.Port)
	}
	return config.Profile.Validate()
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

func setupLogging(tui bool) {
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	// The table owns the terminal; only errors get through.
	if tui {
		logLevel = slog.LevelError
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

func run(config Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Container != "" {
		host, port, err := resolveContainer(ctx, config.Container)
		if err != nil {
			return err
		}
		config.Conn.Host, config.Conn.Port = host, port
	}

	source, err := activity.Open(ctx, config.Conn.DSN())
	if err != nil {
		return err
	}
	defer source.Close()

	summarizer := summary.New(config.Last)
	collector := metrics.New()

	g, gctx := errgroup.WithContext(ctx)

	var reporters report.Multi
	if config.TUI {
		tui, err := report.NewTUI()
		if err != nil {
			return err
		}
		defer tui.Close()
		go tui.Run(gctx, stop)
		reporters = append(reporters, tui)
	} else {
		reporters = append(reporters, report.NewText(os.Stdout))
	}

	if config.Listen != "" {
		hub := server.NewHub(collector.Handler())
		reporters = append(reporters, hub)
		g.Go(func() error {
			return server.Serve(gctx, config.Listen, hub.Router())
		})
	}

	p := profiler.New(source, summarizer, reporters, collector, config.Profile)
	g.Go(func() error {
		return p.Run(gctx)
	})

	return g.Wait()
}

func resolveContainer(ctx context.Context, name string) (string, int, error) {
	docker, err := activity.NewDockerClient()
	if err != nil {
		return "", 0, err
	}
	defer docker.Close()

	return docker.ResolveContainer(ctx, name, activity.PostgresPort)
}
