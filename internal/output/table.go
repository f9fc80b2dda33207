package output

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jzx17/goexecutor/pkg/executor"
	"github.com/jzx17/goexecutor/pkg/retry"
	"github.com/jzx17/goexecutor/pkg/types"
	"github.com/olekukonko/tablewriter"
)

// Options configures formatting
type Options struct {
	// NoColor disables colored output
	NoColor bool

	// NoHeaders omits table headers
	NoHeaders bool
}

// TableFormatter formats output as borderless tables
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// FormatStats writes an executor statistics snapshot as a key/value table
func (f *TableFormatter) FormatStats(w io.Writer, stats types.ExecutorStats) error {
	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)
	f.setHeader(table, colors, "METRIC", "VALUE")

	lastTask := "-"
	if !stats.LastTaskTime.IsZero() {
		lastTask = stats.LastTaskTime.Format(time.RFC3339Nano)
	}
	capacity := "unbounded"
	if stats.QueueCapacity > 0 {
		capacity = strconv.Itoa(stats.QueueCapacity)
	}

	table.AppendBulk([][]string{
		{"Executor", colors.Name("%s", stats.Name)},
		{"State", colors.State(stats.State)},
		{"Submitted", strconv.FormatInt(stats.Submitted, 10)},
		{"Lazy", strconv.FormatInt(stats.LazySubmitted, 10)},
		{"Completed", colors.Count(stats.Completed, false)},
		{"Failed", colors.Count(stats.Failed, true)},
		{"Rejected", colors.Count(stats.Rejected, true)},
		{"Pending", strconv.Itoa(stats.Pending)},
		{"Capacity", capacity},
		{"Last task", lastTask},
	})
	table.Render()
	return nil
}

// FormatRetry writes resubmission counters
func (f *TableFormatter) FormatRetry(w io.Writer, stats retry.Stats) error {
	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)
	f.setHeader(table, colors, "ACCEPTED", "RETRIED", "GAVE UP")
	table.Append([]string{
		strconv.FormatInt(stats.Accepted, 10),
		colors.Count(stats.Retried, false),
		colors.Count(stats.GaveUp, true),
	})
	table.Render()
	return nil
}

// FormatProperties writes the loop thread properties, followed by its stack when withStack is set
func (f *TableFormatter) FormatProperties(w io.Writer, props *executor.ThreadProperties, withStack bool) error {
	if props == nil {
		fmt.Fprintln(w, "No event loop thread")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)
	f.setHeader(table, colors, "PROPERTY", "VALUE")

	alive := colors.Warning("%t", false)
	if props.IsAlive() {
		alive = colors.Success("%t", true)
	}
	osThread := "-"
	if id := props.OSThreadID(); id != 0 {
		osThread = strconv.Itoa(id)
	}

	table.AppendBulk([][]string{
		{"Name", colors.Name("%s", props.Name())},
		{"Goroutine", strconv.FormatUint(props.ID(), 10)},
		{"OS thread", osThread},
		{"Priority", strconv.Itoa(props.Priority())},
		{"Daemon", strconv.FormatBool(props.IsDaemon())},
		{"Alive", alive},
	})
	table.Render()

	if withStack {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, colors.Header("Stack:"))
		for _, frame := range props.StackTrace() {
			fmt.Fprintf(w, "  %s\n", frame)
		}
	}
	return nil
}

// FormatSummary prints a one line summary of a workload run
func (f *TableFormatter) FormatSummary(w io.Writer, stats types.ExecutorStats, elapsed time.Duration) {
	colors := NewColorScheme(w, f.options.NoColor)

	completed := colors.Success("%d completed", stats.Completed)
	failed := fmt.Sprintf("%d failed", stats.Failed)
	if stats.Failed > 0 {
		failed = colors.Error("%s", failed)
	}
	rejected := fmt.Sprintf("%d rejected", stats.Rejected)
	if stats.Rejected > 0 {
		rejected = colors.Warning("%s", rejected)
	}

	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Summary: %s, %s, %s in %s\n", completed, failed, rejected, colors.Duration("%s", elapsed.Round(time.Millisecond)))
}

func (f *TableFormatter) setHeader(table *tablewriter.Table, colors *ColorScheme, headers ...string) {
	if f.options.NoHeaders {
		return
	}
	if colors.Disabled {
		table.SetHeader(headers)
		return
	}
	colored := make([]string, len(headers))
	for i, h := range headers {
		colored[i] = colors.Header("%s", h)
	}
	table.SetHeader(colored)
}

// createTable creates a new borderless table
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	return table
}
