package testutils

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/mcuadros/go-defaults"
)

// TestingT is the subset of testing.T the asserter needs
type TestingT interface {
	Errorf(format string, args ...interface{})
}

// TranscriptOptions controls how transcripts are normalized before comparison
type TranscriptOptions struct {
	IgnoreTrailingWhitespace bool `default:"true"`
	IgnoreEmptyLines         bool `default:"false"`
	EnableColors             bool `default:"false"`
}

// TranscriptOption is a functional option for TranscriptAsserter
type TranscriptOption func(*TranscriptOptions)

// TranscriptAsserter compares line-oriented output (a log panel, a command's
// stdout) and reports mismatches as a unified diff.
type TranscriptAsserter struct {
	t       TestingT
	options TranscriptOptions
}

func NewTranscriptAsserter(t TestingT, opts ...TranscriptOption) *TranscriptAsserter {
	options := TranscriptOptions{}
	defaults.SetDefaults(&options)
	for _, opt := range opts {
		opt(&options)
	}
	return &TranscriptAsserter{t: t, options: options}
}

// Options returns a copy of the effective options
func (ta *TranscriptAsserter) Options() TranscriptOptions {
	return ta.options
}

// AssertLines compares actual lines against the expected ones
func (ta *TranscriptAsserter) AssertLines(actual []string, expected ...string) bool {
	return ta.Assert(strings.Join(actual, "\n"), strings.Join(expected, "\n"))
}

// Assert compares actual text against expected text
func (ta *TranscriptAsserter) Assert(actual, expected string) bool {
	if diff := ta.Diff(actual, expected); diff != "" {
		ta.t.Errorf("Transcript mismatch - unified diff:\n%s", diff)
		return false
	}
	return true
}

// Diff returns an empty string when both texts match after normalization
func (ta *TranscriptAsserter) Diff(actual, expected string) string {
	a := ta.normalize(actual)
	e := ta.normalize(expected)
	if a == e {
		return ""
	}

	edits := myers.ComputeEdits("", e+"\n", a+"\n")
	unified := fmt.Sprint(gotextdiff.ToUnified("expected", "actual", e+"\n", edits))
	if !ta.options.EnableColors {
		return unified
	}
	return colorize(unified)
}

func (ta *TranscriptAsserter) normalize(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if ta.options.IgnoreTrailingWhitespace {
			line = strings.TrimRight(line, " \t")
		}
		if ta.options.IgnoreEmptyLines && line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func colorize(diff string) string {
	red := color.New(color.FgRed)
	red.EnableColor()
	green := color.New(color.FgGreen)
	green.EnableColor()
	cyan := color.New(color.FgCyan)
	cyan.EnableColor()

	lines := strings.Split(diff, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
		case strings.HasPrefix(line, "@@"):
			lines[i] = cyan.Sprint(line)
		case strings.HasPrefix(line, "-"):
			// trailing spaces matter in a transcript, make them visible
			lines[i] = red.Sprint(showSpaces(line))
		case strings.HasPrefix(line, "+"):
			lines[i] = green.Sprint(showSpaces(line))
		}
	}
	return strings.Join(lines, "\n")
}

func showSpaces(line string) string {
	return strings.NewReplacer(" ", "·", "\t", "→").Replace(line)
}

// WithIgnoreTrailingWhitespace toggles trimming of line ends
func WithIgnoreTrailingWhitespace(ignore bool) TranscriptOption {
	return func(o *TranscriptOptions) { o.IgnoreTrailingWhitespace = ignore }
}

// WithIgnoreEmptyLines drops blank lines from both sides
func WithIgnoreEmptyLines(ignore bool) TranscriptOption {
	return func(o *TranscriptOptions) { o.IgnoreEmptyLines = ignore }
}

// WithEnableColors colours the diff output
func WithEnableColors(enable bool) TranscriptOption {
	return func(o *TranscriptOptions) { o.EnableColors = enable }
}
