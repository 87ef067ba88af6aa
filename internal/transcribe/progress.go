package transcribe

import "github.com/Epistemic-Technology/pdf-transcribe/models"

// ProgressReporter receives progress updates synchronously on the pipeline goroutine
type ProgressReporter interface {
	Report(update models.ProgressUpdate)
}

// ProgressFunc adapts a function to ProgressReporter
type ProgressFunc func(update models.ProgressUpdate)

func (f ProgressFunc) Report(update models.ProgressUpdate) {
	f(update)
}

// Discard drops every update
var Discard ProgressReporter = ProgressFunc(func(models.ProgressUpdate) {})

type multiReporter []ProgressReporter

func (m multiReporter) Report(update models.ProgressUpdate) {
	for _, r := range m {
		r.Report(update)
	}
}

// MultiReporter fans each update out to every non-nil reporter in order
func MultiReporter(reporters ...ProgressReporter) ProgressReporter {
	var m multiReporter
	for _, r := range reporters {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}
