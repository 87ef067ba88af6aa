package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/logger"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/transcribe"
	"github.com/Epistemic-Technology/pdf-transcribe/models"
)

// progressNotifier forwards pipeline progress to the client as MCP progress notifications
type progressNotifier struct {
	ctx     context.Context
	session *mcp.ServerSession
	token   any
	log     logger.Logger
}

// newProgressReporter returns a reporter for req, or a debug logger when the client sent no progress token
func newProgressReporter(ctx context.Context, req *mcp.CallToolRequest, log logger.Logger) transcribe.ProgressReporter {
	logProgress := transcribe.ProgressFunc(func(u models.ProgressUpdate) {
		log.Debug("Progress %d/%d: %s", u.CurrentIndex, u.Total, u.Message)
	})

	if req == nil || req.Session == nil || req.Params == nil {
		return logProgress
	}
	token := req.Params.GetProgressToken()
	if token == nil {
		return logProgress
	}
	return transcribe.MultiReporter(logProgress, &progressNotifier{ctx: ctx, session: req.Session, token: token, log: log})
}

func (p *progressNotifier) Report(u models.ProgressUpdate) {
	err := p.session.NotifyProgress(p.ctx, &mcp.ProgressNotificationParams{
		ProgressToken: p.token,
		Progress:      float64(u.CurrentIndex),
		Total:         float64(u.Total),
		Message:       u.Message,
	})
	if err != nil {
		p.log.Warn("Failed to send progress notification: %v", err)
	}
}
