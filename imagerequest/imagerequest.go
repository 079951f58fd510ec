// Package imagerequest turns an inbound event into a validated image
// request: it detects the request type, decodes the requested edits, checks
// the signature and fetches the source image.
package imagerequest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PrzemekMalak/serverless-image-handler/apierror"
	"github.com/PrzemekMalak/serverless-image-handler/event"
	"github.com/PrzemekMalak/serverless-image-handler/options"
	"github.com/PrzemekMalak/serverless-image-handler/storage"
	"github.com/PrzemekMalak/serverless-image-handler/transform"
)

// DefaultCacheControl is used when the source object does not set one.
const DefaultCacheControl = "max-age=31536000,public"

// RequestType tells how the request path was encoded.
type RequestType string

const (
	// Default requests carry a base64 encoded JSON document as the path.
	Default RequestType = "Default"
	// Query requests name the key in the path and edits in the query string.
	Query RequestType = "Query"
)

// ImageRequest is a validated request with the source image loaded. It is
// owned by a single invocation.
type ImageRequest struct {
	RequestType   RequestType
	Bucket        string
	Key           string
	Edits         options.Options
	OriginalImage []byte
	ContentType   string
	CacheControl  string
	Expires       string
	LastModified  string

	// Overlay names an image drawn over the center of the result.
	Overlay *Overlay

	// Headers are custom response headers requested by the client.
	Headers map[string]string
}

// Edited reports whether the original image has to be transformed.
func (r *ImageRequest) Edited() bool {
	return r.Edits.Transforms() || r.Overlay != nil
}

// Overlay locates an overlay image in storage.
type Overlay struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Config controls request validation.
type Config struct {
	SignatureEnabled bool
	SourceBuckets    []string
}

// Parser builds ImageRequests from events.
type Parser struct {
	cfg    Config
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewParser(cfg Config, logger *zap.SugaredLogger) *Parser {
	return &Parser{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Setup validates ev and loads the source image from store. secret is only
// consulted when signatures are enabled. All failures are *apierror.Error.
func (p *Parser) Setup(ctx context.Context, store storage.Store, secret string, ev event.Event) (*ImageRequest, error) {
	query := ev.Query()

	if p.cfg.SignatureEnabled {
		if err := verifySignature(secret, ev.Path, query.Get("signature")); err != nil {
			return nil, err
		}
	}

	if err := checkExpiry(query.Get("expires"), p.now()); err != nil {
		return nil, err
	}

	req, err := p.decode(ev.Path, query)
	if err != nil {
		return nil, err
	}

	if !p.allowedBucket(req.Bucket) {
		return nil, apierror.New(http.StatusForbidden, apierror.CodeCannotAccessBucket,
			"The bucket you specified could not be accessed. Please check that the bucket is specified in your SOURCE_BUCKETS.")
	}
	if req.Overlay != nil && (req.Overlay.Key == "" || !p.allowedBucket(req.Overlay.Bucket)) {
		return nil, apierror.New(http.StatusForbidden, apierror.CodeCannotAccessBucket,
			"The overlay image could not be accessed. Please check that its bucket is specified in your SOURCE_BUCKETS.")
	}
	if req.Key == "" {
		return nil, apierror.New(http.StatusBadRequest, apierror.CodeCannotFindImage,
			"The image you specified could not be found. Please check your request syntax as well as the bucket you specified to ensure it exists.")
	}

	p.logger.Debugw("Decoded image request",
		"requestType", req.RequestType,
		"bucket", req.Bucket,
		"key", req.Key,
		"edits", req.Edits.String(),
	)

	obj, err := store.GetObject(ctx, req.Bucket, req.Key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apierror.Newf(http.StatusNotFound, apierror.CodeNoSuchKey,
				"The image %s does not exist or the request may not be base64 encoded properly.", req.Key)
		}
		return nil, apierror.New(http.StatusInternalServerError, apierror.CodeCannotAccessImage, err.Error())
	}

	if err := applyObject(req, obj); err != nil {
		return nil, err
	}
	return req, nil
}

func (p *Parser) allowedBucket(bucket string) bool {
	for _, b := range p.cfg.SourceBuckets {
		if b == bucket {
			return true
		}
	}
	return false
}

func (p *Parser) defaultBucket() string {
	if len(p.cfg.SourceBuckets) == 0 {
		return ""
	}
	return p.cfg.SourceBuckets[0]
}

// applyObject copies the source image and its metadata into req and settles
// the output format.
func applyObject(req *ImageRequest, obj *storage.Object) error {
	req.OriginalImage = obj.Body
	req.ContentType = obj.ContentType

	switch {
	case req.Edits.Format != "":
		format := transform.NormalizeFormat(req.Edits.Format)
		if !transform.Encodable(format) {
			return apierror.Newf(http.StatusBadRequest, apierror.CodeUnsupportedFormat,
				"The output format %q is not supported.", req.Edits.Format)
		}
		req.Edits.Format = format
		req.ContentType = transform.ContentType(format)
	case req.Edited() && !transform.Encodable(transform.FormatFromContentType(obj.ContentType)):
		// Edited images from sources we cannot encode, such as webp, are
		// served as png.
		req.Edits.Format = "png"
		req.ContentType = transform.ContentType("png")
	}

	req.CacheControl = obj.CacheControl
	if req.CacheControl == "" {
		req.CacheControl = DefaultCacheControl
	}
	if obj.Expires != nil {
		req.Expires = obj.Expires.UTC().Format(http.TimeFormat)
	}
	if obj.LastModified != nil {
		req.LastModified = obj.LastModified.UTC().Format(http.TimeFormat)
	}
	return nil
}

// checkExpiry rejects requests whose expires parameter, in the form
// 20060102T150405Z, lies in the past.
func checkExpiry(expires string, now time.Time) error {
	if expires == "" {
		return nil
	}
	t, err := time.Parse("20060102T150405Z", strings.TrimSpace(expires))
	if err != nil {
		return apierror.New(http.StatusBadRequest, apierror.CodeExpiryFormat, "Request has invalid expiry date.")
	}
	if now.After(t) {
		return apierror.New(http.StatusBadRequest, apierror.CodeRequestExpired, "Request has expired.")
	}
	return nil
}
