// Package imagehandler answers image requests arriving as Lambda proxy
// events. For typical use of creating and running a Handler, see
// cmd/image-handler/main.go.
package imagehandler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/PrzemekMalak/serverless-image-handler/analysis"
	"github.com/PrzemekMalak/serverless-image-handler/event"
	"github.com/PrzemekMalak/serverless-image-handler/imagerequest"
	"github.com/PrzemekMalak/serverless-image-handler/secrets"
	"github.com/PrzemekMalak/serverless-image-handler/storage"
)

// Parser validates an event and loads the source image.
type Parser interface {
	Setup(ctx context.Context, store storage.Store, secret string, ev event.Event) (*imagerequest.ImageRequest, error)
}

// Processor renders a request into a base64 image body.
type Processor interface {
	Process(ctx context.Context, store storage.Store, detector analysis.FaceDetector, req *imagerequest.ImageRequest) (string, error)
}

// Dependencies are the collaborators of a Handler.
type Dependencies struct {
	Secrets   secrets.Store
	Storage   storage.Store
	Detector  analysis.FaceDetector
	Parser    Parser
	Processor Processor
}

// Handler serves image requests. It is safe for concurrent use; the signing
// secret is the only state shared between invocations.
type Handler struct {
	logger  *zap.SugaredLogger
	metrics *Metrics

	secret    *SecretCache
	store     storage.Store
	detector  analysis.FaceDetector
	parser    Parser
	processor Processor
	headers   HeaderComposer
	fallback  *FallbackResolver
	stages    []RecoveryStage
}

func NewHandler(cfg Config, deps Dependencies, logger *zap.SugaredLogger, metrics *Metrics) *Handler {
	headers := HeaderComposer{
		CORSEnabled: cfg.CORSEnabled,
		CORSOrigin:  cfg.CORSOrigin,
	}

	h := &Handler{
		logger:    logger,
		metrics:   metrics,
		secret:    NewSecretCache(deps.Secrets, cfg.SecretParameter, cfg.SignatureEnabled, logger, metrics),
		store:     deps.Storage,
		detector:  deps.Detector,
		parser:    deps.Parser,
		processor: deps.Processor,
		headers:   headers,
		fallback:  NewFallbackResolver(cfg, deps.Storage, headers, logger),
	}
	h.stages = h.recoveryStages()
	return h
}

// Handle answers one event. Every failure is turned into a response, so the
// returned error is always nil.
func (h *Handler) Handle(ctx context.Context, ev event.Event) (*event.Response, error) {
	then := time.Now()

	resp := h.serve(ctx, ev)

	h.metrics.recordInvocation(resp.StatusCode, time.Since(then))
	h.logger.Infow("Handled",
		"requestId", ev.RequestContext.RequestID,
		"path", ev.Path,
		"status", resp.StatusCode,
		"alb", ev.IsALB(),
		"duration", time.Since(then),
	)
	return resp, nil
}

func (h *Handler) serve(ctx context.Context, ev event.Event) *event.Response {
	req, body, err := h.process(ctx, ev)
	if err != nil {
		return h.recoverFrom(ctx, ev, err)
	}

	return &event.Response{
		StatusCode:      http.StatusOK,
		IsBase64Encoded: true,
		Headers:         successHeaders(h.headers.Compose(false, ev.IsALB()), req),
		Body:            body,
	}
}

// successHeaders overlays the image metadata and then the custom headers of
// req on composed. Later layers win.
func successHeaders(composed map[string]string, req *imagerequest.ImageRequest) map[string]string {
	setNonEmpty(composed, "Content-Type", req.ContentType)
	setNonEmpty(composed, "Expires", req.Expires)
	setNonEmpty(composed, "Last-Modified", req.LastModified)
	setNonEmpty(composed, "Cache-Control", req.CacheControl)
	for k, v := range req.Headers {
		composed[k] = v
	}
	return composed
}

// process runs the request pipeline. A panic in a collaborator is returned
// as an unclassified error.
func (h *Handler) process(ctx context.Context, ev event.Event) (req *imagerequest.ImageRequest, body string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic: %v", r)
		}
	}()

	if err := h.secret.EnsureLoaded(ctx); err != nil {
		return nil, "", err
	}

	req, err = h.parser.Setup(ctx, h.store, h.secret.Value(), ev)
	if err != nil {
		return nil, "", err
	}

	body, err = h.processor.Process(ctx, h.store, h.detector, req)
	if err != nil {
		return nil, "", err
	}
	return req, body, nil
}

func setNonEmpty(headers map[string]string, key, value string) {
	if value != "" {
		headers[key] = value
	}
}
