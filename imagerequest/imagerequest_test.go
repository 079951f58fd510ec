package imagerequest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/PrzemekMalak/serverless-image-handler/apierror"
	"github.com/PrzemekMalak/serverless-image-handler/event"
	"github.com/PrzemekMalak/serverless-image-handler/options"
	"github.com/PrzemekMalak/serverless-image-handler/storage"
)

var modified = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newStore() *storage.MemoryStore {
	store := storage.NewMemoryStore()
	store.Put("images", "cat.jpg", &storage.Object{
		ContentType:  "image/jpeg",
		LastModified: &modified,
		Body:         []byte("jpeg-bytes"),
	})
	store.Put("other", "dog.webp", &storage.Object{
		ContentType:  "image/webp",
		CacheControl: "max-age=60",
		Body:         []byte("webp-bytes"),
	})
	return store
}

func newParser(t *testing.T, cfg Config) *Parser {
	if cfg.SourceBuckets == nil {
		cfg.SourceBuckets = []string{"images", "other"}
	}
	return NewParser(cfg, zaptest.NewLogger(t).Sugar())
}

func encodePath(doc string) string {
	return "/" + base64.StdEncoding.EncodeToString([]byte(doc))
}

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	apiErr, ok := apierror.As(err)
	require.True(t, ok, "expected classified error, got %v", err)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, code, apiErr.Code)
}

func TestSetup_DefaultRequest(t *testing.T) {
	p := newParser(t, Config{})
	ev := event.Event{Path: encodePath(`{
		"bucket": "images",
		"key": "cat.jpg",
		"edits": {"resize": {"width": 100, "height": 50, "fit": "inside"}, "rotate": 90, "flip": true, "smartCrop": {"padding": 4}},
		"headers": {"X-Foo": "bar"}
	}`)}

	req, err := p.Setup(context.Background(), newStore(), "", ev)
	require.NoError(t, err)

	assert.Equal(t, Default, req.RequestType)
	assert.Equal(t, "images", req.Bucket)
	assert.Equal(t, "cat.jpg", req.Key)
	assert.True(t, req.Edits.Equal(options.Options{
		Width: 100, Height: 50, Fit: true, Rotate: -90, FlipVertical: true, SmartCrop: true, SmartCropPadding: 4,
	}), "edits: %#v", req.Edits)
	assert.Equal(t, []byte("jpeg-bytes"), req.OriginalImage)
	assert.Equal(t, "image/jpeg", req.ContentType)
	assert.Equal(t, DefaultCacheControl, req.CacheControl)
	assert.Equal(t, "Mon, 06 May 2024 07:08:09 GMT", req.LastModified)
	assert.Empty(t, req.Expires)
	assert.Equal(t, map[string]string{"X-Foo": "bar"}, req.Headers)
}

func TestSetup_DefaultRequestOutputFormat(t *testing.T) {
	p := newParser(t, Config{})
	ev := event.Event{Path: encodePath(`{"key": "cat.jpg", "outputFormat": "PNG", "edits": {"smartCrop": true}}`)}

	req, err := p.Setup(context.Background(), newStore(), "", ev)
	require.NoError(t, err)

	assert.Equal(t, "images", req.Bucket, "falls back to the first source bucket")
	assert.Equal(t, "png", req.Edits.Format)
	assert.True(t, req.Edits.SmartCrop)
	assert.Equal(t, "image/png", req.ContentType)
}

func TestSetup_QueryRequest(t *testing.T) {
	p := newParser(t, Config{})
	ev := event.Event{
		Path:                  "/cat.jpg",
		QueryStringParameters: map[string]string{"width": "300", "format": "jpg"},
	}

	req, err := p.Setup(context.Background(), newStore(), "", ev)
	require.NoError(t, err)

	assert.Equal(t, Query, req.RequestType)
	assert.Equal(t, "images", req.Bucket)
	assert.Equal(t, "cat.jpg", req.Key)
	assert.Equal(t, 300.0, req.Edits.Width)
	assert.Equal(t, "jpeg", req.Edits.Format)
	assert.Equal(t, "image/jpeg", req.ContentType)
	assert.Nil(t, req.Headers)
}

func TestSetup_WebpSourceWithEdits(t *testing.T) {
	p := newParser(t, Config{})
	ev := event.Event{Path: encodePath(`{"bucket": "other", "key": "dog.webp", "edits": {"grayscale": true}}`)}

	req, err := p.Setup(context.Background(), newStore(), "", ev)
	require.NoError(t, err)

	assert.Equal(t, "png", req.Edits.Format)
	assert.Equal(t, "image/png", req.ContentType)
	assert.Equal(t, "max-age=60", req.CacheControl)
}

func TestSetup_WebpSourceWithoutEdits(t *testing.T) {
	p := newParser(t, Config{})
	ev := event.Event{Path: encodePath(`{"bucket": "other", "key": "dog.webp"}`)}

	req, err := p.Setup(context.Background(), newStore(), "", ev)
	require.NoError(t, err)

	assert.Equal(t, "", req.Edits.Format)
	assert.Equal(t, "image/webp", req.ContentType)
}

func TestSetup_DefaultRotationIsClockwise(t *testing.T) {
	tests := []struct {
		rotate int
		want   int
	}{
		{0, 0},
		{90, -90},
		{270, -270},
		{-45, 45},
	}

	for _, tt := range tests {
		ev := event.Event{Path: encodePath(fmt.Sprintf(`{"key": "cat.jpg", "edits": {"rotate": %d}}`, tt.rotate))}
		req, err := newParser(t, Config{}).Setup(context.Background(), newStore(), "", ev)
		require.NoError(t, err)
		assert.Equal(t, tt.want, req.Edits.Rotate, "rotate %d", tt.rotate)
	}

	query := event.Event{Path: "/cat.jpg", QueryStringParameters: map[string]string{"rotate": "90"}}
	req, err := newParser(t, Config{}).Setup(context.Background(), newStore(), "", query)
	require.NoError(t, err)
	assert.Equal(t, 90, req.Edits.Rotate, "query rotation stays counter-clockwise")
}

func TestSetup_Overlay(t *testing.T) {
	p := newParser(t, Config{})
	ev := event.Event{Path: encodePath(`{"bucket": "other", "key": "dog.webp", "edits": {"overlayWith": {"key": "logo.png"}}}`)}

	req, err := p.Setup(context.Background(), newStore(), "", ev)
	require.NoError(t, err)

	assert.Equal(t, &Overlay{Bucket: "other", Key: "logo.png"}, req.Overlay, "overlay bucket defaults to the image bucket")
	assert.True(t, req.Edited())
	assert.Equal(t, "image/png", req.ContentType)
}

func TestSetup_Failures(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		ev     event.Event
		status int
		code   string
	}{
		{
			name:   "undecodable document",
			ev:     event.Event{Path: encodePath(`{"bucket": `)},
			status: http.StatusBadRequest,
			code:   apierror.CodeCannotDecodeRequest,
		},
		{
			name:   "bucket not allowed",
			ev:     event.Event{Path: encodePath(`{"bucket": "secret-bucket", "key": "cat.jpg"}`)},
			status: http.StatusForbidden,
			code:   apierror.CodeCannotAccessBucket,
		},
		{
			name:   "no source buckets",
			cfg:    Config{SourceBuckets: []string{}},
			ev:     event.Event{Path: "/cat.jpg"},
			status: http.StatusForbidden,
			code:   apierror.CodeCannotAccessBucket,
		},
		{
			name:   "overlay bucket not allowed",
			ev:     event.Event{Path: encodePath(`{"key": "cat.jpg", "edits": {"overlayWith": {"bucket": "secret-bucket", "key": "logo.png"}}}`)},
			status: http.StatusForbidden,
			code:   apierror.CodeCannotAccessBucket,
		},
		{
			name:   "missing key",
			ev:     event.Event{Path: encodePath(`{"bucket": "images"}`)},
			status: http.StatusBadRequest,
			code:   apierror.CodeCannotFindImage,
		},
		{
			name:   "missing object",
			ev:     event.Event{Path: "/nope.jpg"},
			status: http.StatusNotFound,
			code:   apierror.CodeNoSuchKey,
		},
		{
			name:   "unsupported format",
			ev:     event.Event{Path: "/cat.jpg", QueryStringParameters: map[string]string{"format": "webp"}},
			status: http.StatusBadRequest,
			code:   apierror.CodeUnsupportedFormat,
		},
		{
			name:   "malformed expiry",
			ev:     event.Event{Path: "/cat.jpg", QueryStringParameters: map[string]string{"expires": "tomorrow"}},
			status: http.StatusBadRequest,
			code:   apierror.CodeExpiryFormat,
		},
		{
			name:   "expired",
			ev:     event.Event{Path: "/cat.jpg", QueryStringParameters: map[string]string{"expires": "20000101T000000Z"}},
			status: http.StatusBadRequest,
			code:   apierror.CodeRequestExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newParser(t, tt.cfg).Setup(context.Background(), newStore(), "", tt.ev)
			requireAPIError(t, err, tt.status, tt.code)
		})
	}
}

func TestSetup_StorageFailure(t *testing.T) {
	store := newStore()
	store.FailWith(errors.New("access denied"))

	_, err := newParser(t, Config{}).Setup(context.Background(), store, "", event.Event{Path: "/cat.jpg"})
	requireAPIError(t, err, http.StatusInternalServerError, apierror.CodeCannotAccessImage)
}

func TestSetup_NotExpired(t *testing.T) {
	p := newParser(t, Config{})
	p.now = func() time.Time { return time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC) }
	ev := event.Event{Path: "/cat.jpg", QueryStringParameters: map[string]string{"expires": "20300101T000000Z"}}

	_, err := p.Setup(context.Background(), newStore(), "", ev)
	assert.NoError(t, err)
}

func TestSetup_Signature(t *testing.T) {
	const secret = "c0ffee"
	p := newParser(t, Config{SignatureEnabled: true})

	tests := []struct {
		name      string
		signature string
		status    int
		code      string
	}{
		{"missing", "", http.StatusBadRequest, apierror.CodeMissingSignature},
		{"not hex", "zzzz", http.StatusForbidden, apierror.CodeSignatureMismatch},
		{"wrong", Sign("other", "/cat.jpg"), http.StatusForbidden, apierror.CodeSignatureMismatch},
		{"valid", Sign(secret, "/cat.jpg"), 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := event.Event{Path: "/cat.jpg"}
			if tt.signature != "" {
				ev.QueryStringParameters = map[string]string{"signature": tt.signature}
			}

			req, err := p.Setup(context.Background(), newStore(), secret, ev)
			if tt.status == 0 {
				require.NoError(t, err)
				assert.Equal(t, "cat.jpg", req.Key)
				return
			}
			requireAPIError(t, err, tt.status, tt.code)
		})
	}
}

func TestDecodeBase64(t *testing.T) {
	tests := []struct {
		raw string
		ok  bool
	}{
		{"", false},
		{"cat.jpg", false},
		{"abcd", false},
		{base64.StdEncoding.EncodeToString([]byte(`{"key":"a"}`)), true},
		{base64.RawURLEncoding.EncodeToString([]byte(`{"key":"a?"}`)), true},
		{base64.StdEncoding.EncodeToString([]byte(`["key"]`)), false},
	}

	for _, tt := range tests {
		if _, got := decodeBase64(tt.raw); got != tt.ok {
			t.Errorf("decodeBase64(%q) returned %v, want %v", tt.raw, got, tt.ok)
		}
	}
}
