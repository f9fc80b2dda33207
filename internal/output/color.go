package output

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/jzx17/goexecutor/pkg/types"
	"github.com/mattn/go-isatty"
)

// ColorScheme provides color functions for different output elements
type ColorScheme struct {
	// Name colors executor and thread names
	Name func(format string, a ...interface{}) string

	// Success colors healthy values
	Success func(format string, a ...interface{}) string

	// Error colors failures
	Error func(format string, a ...interface{}) string

	// Warning colors values that need attention
	Warning func(format string, a ...interface{}) string

	// Header colors table headers
	Header func(format string, a ...interface{}) string

	// Duration colors duration values
	Duration func(format string, a ...interface{}) string

	// Disabled indicates if colors are disabled
	Disabled bool
}

// NewColorScheme creates a new color scheme.
// Colors are automatically disabled for non-TTY outputs or when noColor is true
func NewColorScheme(w io.Writer, noColor bool) *ColorScheme {
	if noColor || !isTTY(w) {
		plain := color.New().Sprintf
		return &ColorScheme{
			Name:     plain,
			Success:  plain,
			Error:    plain,
			Warning:  plain,
			Header:   plain,
			Duration: plain,
			Disabled: true,
		}
	}

	return &ColorScheme{
		Name:     color.New(color.FgCyan, color.Bold).Sprintf,
		Success:  color.New(color.FgGreen).Sprintf,
		Error:    color.New(color.FgRed, color.Bold).Sprintf,
		Warning:  color.New(color.FgYellow).Sprintf,
		Header:   color.New(color.FgWhite, color.Bold).Sprintf,
		Duration: color.New(color.FgBlue).Sprintf,
	}
}

func isTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// State colors a lifecycle state: running states green, shutdown states yellow
func (cs *ColorScheme) State(state types.LifecycleState) string {
	switch {
	case state <= types.StateStarted:
		return cs.Success("%s", state)
	case state < types.StateTerminated:
		return cs.Warning("%s", state)
	default:
		return cs.Name("%s", state)
	}
}

// Count colors a counter red when it is non-zero and counts something bad
func (cs *ColorScheme) Count(n int64, bad bool) string {
	if bad && n > 0 {
		return cs.Error("%d", n)
	}
	return cs.Success("%d", n)
}
