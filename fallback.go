package imagehandler

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/PrzemekMalak/serverless-image-handler/apierror"
	"github.com/PrzemekMalak/serverless-image-handler/event"
	"github.com/PrzemekMalak/serverless-image-handler/imagerequest"
	"github.com/PrzemekMalak/serverless-image-handler/storage"
)

// FallbackResolver answers failed requests with the configured default
// image.
type FallbackResolver struct {
	logger  *zap.SugaredLogger
	store   storage.Store
	headers HeaderComposer

	enabled bool
	bucket  string
	key     string
}

func NewFallbackResolver(cfg Config, store storage.Store, headers HeaderComposer, logger *zap.SugaredLogger) *FallbackResolver {
	return &FallbackResolver{
		logger:  logger,
		store:   store,
		headers: headers,
		enabled: cfg.FallbackEnabled,
		bucket:  strings.TrimSpace(cfg.FallbackBucket),
		key:     strings.TrimSpace(cfg.FallbackKey),
	}
}

// Configured reports whether a fallback image should be attempted.
func (f *FallbackResolver) Configured() bool {
	return f.enabled && f.bucket != "" && f.key != ""
}

// Resolve returns the fallback response for cause. It returns false when no
// fallback is configured or the fallback image cannot be fetched; fetch
// failures are logged and never returned.
func (f *FallbackResolver) Resolve(ctx context.Context, cause error, isALB bool) (*event.Response, bool) {
	if !f.Configured() {
		return nil, false
	}

	obj, err := f.store.GetObject(ctx, f.bucket, f.key)
	if err != nil {
		f.logger.Warnw("Could not fetch the default fallback image",
			"bucket", f.bucket,
			"key", f.key,
			"error", err.Error(),
		)
		return nil, false
	}

	headers := f.headers.Compose(false, isALB)
	if obj.ContentType != "" {
		headers["Content-Type"] = obj.ContentType
	}
	if obj.LastModified != nil {
		headers["Last-Modified"] = obj.LastModified.UTC().Format(http.TimeFormat)
	}
	headers["Cache-Control"] = imagerequest.DefaultCacheControl

	return &event.Response{
		StatusCode:      apierror.StatusOf(cause),
		IsBase64Encoded: true,
		Headers:         headers,
		Body:            base64.StdEncoding.EncodeToString(obj.Body),
	}, true
}
