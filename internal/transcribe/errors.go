package transcribe

import "fmt"

// Stage names the pipeline step that failed
type Stage string

const (
	StageOpenDocument Stage = "opening the PDF"
	StageLoadPage     Stage = "loading"
	StageRender       Stage = "rendering"
	StageEncode       Stage = "image encoding"
	StageTranscribe   Stage = "transcription"
	StageCancelled    Stage = "cancelled"
)

// PipelineError aborts a transcription run. No partial result is returned alongside it.
type PipelineError struct {
	Stage Stage
	// Page is the page being processed, 0 when the failure is not tied to a page
	Page int
	Err  error
}

func (e *PipelineError) Error() string {
	switch {
	case e.Stage == StageCancelled:
		return fmt.Sprintf("transcription cancelled before page %d: %v", e.Page, e.Err)
	case e.Page > 0:
		return fmt.Sprintf("%s failed on page %d: %v", e.Stage, e.Page, e.Err)
	default:
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
