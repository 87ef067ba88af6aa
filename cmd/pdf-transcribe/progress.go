package main

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/Epistemic-Technology/pdf-transcribe/models"
)

// barReporter draws pipeline progress as a terminal progress bar
type barReporter struct {
	w   io.Writer
	bar *progressbar.ProgressBar
	max int
}

func newBarReporter(w io.Writer) *barReporter {
	return &barReporter{w: w}
}

func (r *barReporter) Report(u models.ProgressUpdate) {
	if r.bar == nil {
		r.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(r.w),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription(u.Message),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("pages"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "│",
				BarEnd:        "│",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(r.w, "\n")
			}),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	if u.Total > 0 && u.Total != r.max {
		r.max = u.Total
		r.bar.ChangeMax(u.Total)
	}
	r.bar.Describe(u.Message)
	_ = r.bar.Set(u.CurrentIndex)
}

// Finish completes the bar if one was started
func (r *barReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}
