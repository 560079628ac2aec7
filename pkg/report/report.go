// Package report renders threshold results as the text shown to the user
// and delivers it through a Sink.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"ventthirds/internal/models"
)

// Sink receives exactly one message per run: the report on success, or a
// description of why the run stopped.
type Sink func(message string)

// WriterSink returns a Sink that writes each message to w followed by a
// newline. Write errors are ignored; a sink never fails.
func WriterSink(w io.Writer) Sink {
	return func(message string) {
		fmt.Fprintln(w, message)
	}
}

// Collect returns a Sink that appends to *messages, for tests and callers
// that post-process the text
func Collect(messages *[]string) Sink {
	return func(message string) {
		*messages = append(*messages, message)
	}
}

const disclaimer = "FOR RESEARCH USE ONLY. These thresholds describe the distribution of " +
	"image values inside the selected structure and are not a diagnosis."

const guidance = "To display the thirds, enter each band as a manual threshold range " +
	"on the image. Each band holds about one third of the structure's voxels."

// Options adds optional detail to the report
type Options struct {
	// Precision is the number of decimal places printed
	Precision int

	// Summary, when set, adds a voxel count, volume and mean line
	Summary *models.Summary
}

// Format renders res for the named structure
func Format(res *models.ThresholdResult, structure string, opts Options) string {
	num := func(v float64) string {
		return strconv.FormatFloat(v, 'f', opts.Precision, 64)
	}

	var b strings.Builder
	b.WriteString(disclaimer)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Structure: %s\n\n", structure)
	fmt.Fprintf(&b, "Lower third:  %s to %s\n", num(res.Min), num(res.LowerBelow))
	fmt.Fprintf(&b, "Middle third: %s to %s\n", num(res.LowerAbove), num(res.UpperBelow))
	fmt.Fprintf(&b, "Upper third:  %s to %s\n", num(res.UpperAbove), num(res.Max))

	if s := opts.Summary; s != nil {
		fmt.Fprintf(&b, "\nVoxels: %d (%.2f mL), mean %.2f, SD %.2f\n", s.Count, s.VolumeML, s.Mean, s.StdDev)
	}

	b.WriteString("\n")
	b.WriteString(guidance)
	b.WriteString("\n")

	if len(res.Warnings) > 0 {
		b.WriteString("\nWARNINGS:\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
