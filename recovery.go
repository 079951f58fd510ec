package imagehandler

import (
	"context"
	"net/http"

	raven "github.com/getsentry/raven-go"

	"github.com/PrzemekMalak/serverless-image-handler/apierror"
	"github.com/PrzemekMalak/serverless-image-handler/event"
)

// RecoveryStage turns a failed invocation into a response. It returns false
// to pass the failure on to the next stage.
type RecoveryStage struct {
	Name    string
	Recover func(ctx context.Context, ev event.Event, err error) (*event.Response, bool)
}

// recoveryStages are tried in order. The last one always answers.
func (h *Handler) recoveryStages() []RecoveryStage {
	return []RecoveryStage{
		{Name: "fallback", Recover: h.recoverWithFallback},
		{Name: "classified", Recover: h.recoverClassified},
		{Name: "internal", Recover: h.recoverInternal},
	}
}

func (h *Handler) recoverFrom(ctx context.Context, ev event.Event, err error) *event.Response {
	for _, stage := range h.stages {
		if resp, ok := stage.Recover(ctx, ev, err); ok {
			h.metrics.recordRecovery(stage.Name)
			return resp
		}
	}
	resp, _ := h.recoverInternal(ctx, ev, err)
	return resp
}

func (h *Handler) recoverWithFallback(ctx context.Context, ev event.Event, err error) (*event.Response, bool) {
	return h.fallback.Resolve(ctx, err, ev.IsALB())
}

func (h *Handler) recoverClassified(_ context.Context, ev event.Event, err error) (*event.Response, bool) {
	apiErr, ok := apierror.As(err)
	if !ok {
		return nil, false
	}
	return &event.Response{
		StatusCode: apiErr.Status,
		Headers:    h.headers.Compose(true, ev.IsALB()),
		Body:       apiErr.Body(),
	}, true
}

func (h *Handler) recoverInternal(_ context.Context, ev event.Event, err error) (*event.Response, bool) {
	h.logger.Errorw("Unclassified failure",
		"requestId", ev.RequestContext.RequestID,
		"path", ev.Path,
		"error", err.Error(),
	)
	raven.CaptureError(err, map[string]string{"path": ev.Path})

	return &event.Response{
		StatusCode: http.StatusInternalServerError,
		Headers:    h.headers.Compose(true, ev.IsALB()),
		Body:       apierror.InternalBody(),
	}, true
}
