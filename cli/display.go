package cli

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
)

// Display renders command output with pterm. Messages go to the error
// stream so data written to out stays machine readable.
type Display struct {
	out io.Writer
	err io.Writer
}

func NewDisplay(out, err io.Writer) *Display {
	return &Display{out: out, err: err}
}

func (d *Display) Info(format string, args ...any) {
	pterm.Info.WithWriter(d.err).Printfln(format, args...)
}

func (d *Display) Success(format string, args ...any) {
	pterm.Success.WithWriter(d.err).Printfln(format, args...)
}

func (d *Display) Warning(format string, args ...any) {
	pterm.Warning.WithWriter(d.err).Printfln(format, args...)
}

func (d *Display) Error(format string, args ...any) {
	pterm.Error.WithWriter(d.err).Printfln(format, args...)
}

// Table prints rows under a header row
func (d *Display) Table(header []string, rows [][]string) error {
	data := pterm.TableData{header}
	data = append(data, rows...)
	return pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithData(data).
		WithWriter(d.out).
		Render()
}

// Section prints a heading above the next block of output
func (d *Display) Section(title string) {
	fmt.Fprint(d.out, pterm.DefaultSection.Sprint(title))
}

// Line writes one plain line to the output stream
func (d *Display) Line(format string, args ...any) {
	fmt.Fprintf(d.out, format+"\n", args...)
}
