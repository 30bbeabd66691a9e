package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Rule is a single rewrite step: every match of Pattern is replaced with Replace.
//
// A Whole rule only replaces matches that form whole tokens: the word
// characters at either end of the match must not be next to another word
// character. Word characters are Unicode letters, marks, digits and
// connector punctuation, so "tablé1" is one identifier, not "tablé" and 1.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
	Whole   bool

	// bounded is Pattern in group 1 followed by a non-word character or the
	// end of the text.
	bounded *regexp.Regexp
}

const wordClass = `\p{L}\p{M}\p{N}\p{Pc}`

func plain(name, pattern, replace string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern), Replace: replace}
}

func whole(name, pattern, replace string) Rule {
	return Rule{
		Name:    name,
		Pattern: regexp.MustCompile(pattern),
		Replace: replace,
		Whole:   true,
		bounded: regexp.MustCompile(`(` + pattern + `)(?:[^` + wordClass + `]|$)`),
	}
}

// Apply runs the rule over text.
func (r Rule) Apply(text string) string {
	if !r.Whole {
		return r.Pattern.ReplaceAllString(text, r.Replace)
	}
	return r.replaceWhole(text)
}

func (r Rule) replaceWhole(text string) string {
	var b strings.Builder
	var dst []byte
	copied, pos := 0, 0

	for pos < len(text) {
		loc := r.bounded.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += pos
			}
		}
		start, end := loc[2], loc[3]

		if !tokenStart(text, start, end) {
			_, size := utf8.DecodeRuneInString(text[start:])
			pos = start + size
			continue
		}

		b.WriteString(text[copied:start])
		dst = r.bounded.ExpandString(dst[:0], r.Replace, text, loc)
		b.Write(dst)
		copied, pos = end, end
	}

	if copied == 0 {
		return text
	}
	b.WriteString(text[copied:])
	return b.String()
}

// tokenStart reports whether the first word character of text[start:end]
// begins a token, i.e. is not preceded by another word character. A leading
// sign is not part of the check, so "a-5" still matches "-5".
func tokenStart(text string, start, end int) bool {
	i := start
	for i < end {
		r, size := utf8.DecodeRuneInString(text[i:])
		if isWord(r) {
			break
		}
		i += size
	}
	if i == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWord(prev)
}

func isWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r) || unicode.Is(unicode.Pc, r)
}

// rules is applied in order; later rules see the output of earlier ones.
var rules = []Rule{
	plain("spaces", ` +`, " "),
	whole("number", `[+-]?\d+`, "N"),
	whole("hex", `0x[0-9A-Fa-f]+`, "0xN"),
	plain("escaped single quote", `\\'`, ""),
	plain("escaped double quote", `\\"`, ""),
	plain("single quoted string", `'[^']+'`, "S"),
	plain("double quoted string", `"[^"]+"`, "S"),
	// N, N, N, N -> ...N
	whole("long list", `(?:[NS]\s*,\s*){3,}(?P<last>[NS])`, "...${last}"),
}

// Rules returns a copy of the rewrite rules in application order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Query normalizes a SQL statement into its shape by replacing numbers, hex
// literals and quoted strings with placeholders, so that statements which
// differ only in literal values group together.
//
// The rule list is repeated until the text stops changing. A single pass is
// not stable on its own: deleting an escape can leave two spaces next to each
// other, and unbalanced quotes pair up differently once the first pairs are
// gone. No rule lengthens the text or introduces digits, so every changing
// pass either shortens it or retires a literal for good.
func Query(text string) string {
	for {
		next := apply(text)
		if next == text {
			return text
		}
		text = next
	}
}

func apply(text string) string {
	for _, r := range rules {
		text = r.Apply(text)
	}
	return text
}
