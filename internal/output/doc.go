// Package output renders executor statistics, thread properties and configuration for
// the stexec command line.
//
// Tables use github.com/olekukonko/tablewriter in a borderless, tab separated layout.
// Colors come from github.com/fatih/color and are disabled automatically when the writer
// is not a terminal.
package output
