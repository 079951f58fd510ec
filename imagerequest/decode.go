package imagerequest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/PrzemekMalak/serverless-image-handler/apierror"
	"github.com/PrzemekMalak/serverless-image-handler/options"
)

// defaultRequest is the JSON document of a Default request.
type defaultRequest struct {
	Bucket       string            `json:"bucket"`
	Key          string            `json:"key"`
	Edits        defaultEdits      `json:"edits"`
	OutputFormat string            `json:"outputFormat"`
	Headers      map[string]string `json:"headers"`
}

type defaultEdits struct {
	Resize *struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
		Fit    string  `json:"fit"`
	} `json:"resize"`
	Rotate    int             `json:"rotate"`
	Flip      bool            `json:"flip"`
	Flop      bool            `json:"flop"`
	Grayscale bool            `json:"grayscale"`
	SmartCrop json.RawMessage `json:"smartCrop"`
	ToFormat  string          `json:"toFormat"`
	Quality   int             `json:"quality"`
	Crop      *struct {
		Left   int `json:"left"`
		Top    int `json:"top"`
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"crop"`
	OverlayWith *Overlay `json:"overlayWith"`
}

func (p *Parser) decode(path string, query url.Values) (*ImageRequest, error) {
	raw := strings.TrimPrefix(path, "/")

	if doc, ok := decodeBase64(raw); ok {
		return p.decodeDefault(doc)
	}

	return &ImageRequest{
		RequestType: Query,
		Bucket:      p.defaultBucket(),
		Key:         raw,
		Edits:       options.ParseFormValues(query, options.Options{}),
	}, nil
}

// decodeBase64 returns the decoded path when it looks like a Default
// request: valid base64 holding a JSON object.
func decodeBase64(raw string) ([]byte, bool) {
	if raw == "" {
		return nil, false
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		bs, err := enc.DecodeString(raw)
		if err != nil {
			continue
		}
		if trimmed := bytes.TrimSpace(bs); len(trimmed) > 0 && trimmed[0] == '{' {
			return trimmed, true
		}
	}
	return nil, false
}

func (p *Parser) decodeDefault(doc []byte) (*ImageRequest, error) {
	var dr defaultRequest
	if err := json.Unmarshal(doc, &dr); err != nil {
		return nil, apierror.New(http.StatusBadRequest, apierror.CodeCannotDecodeRequest,
			"The image request you provided could not be decoded. Please check that your request is base64 encoded properly and refer to the documentation for additional guidance.")
	}

	req := &ImageRequest{
		RequestType: Default,
		Bucket:      dr.Bucket,
		Key:         dr.Key,
		Edits:       dr.Edits.options(),
		Overlay:     dr.Edits.OverlayWith,
		Headers:     dr.Headers,
	}
	if req.Bucket == "" {
		req.Bucket = p.defaultBucket()
	}
	if req.Overlay != nil && req.Overlay.Bucket == "" {
		req.Overlay.Bucket = req.Bucket
	}
	if dr.OutputFormat != "" {
		req.Edits.Format = strings.ToLower(dr.OutputFormat)
	}
	return req, nil
}

func (e defaultEdits) options() options.Options {
	var opt options.Options

	if e.Resize != nil {
		opt.Width = e.Resize.Width
		opt.Height = e.Resize.Height
		switch strings.ToLower(e.Resize.Fit) {
		case "inside", "contain":
			opt.Fit = true
		}
	}
	if e.Crop != nil {
		opt.CropX, opt.CropY = e.Crop.Left, e.Crop.Top
		opt.CropWidth, opt.CropHeight = e.Crop.Width, e.Crop.Height
	}

	// Default edits rotate clockwise.
	opt.Rotate = -e.Rotate
	opt.FlipVertical = e.Flip
	opt.FlipHorizontal = e.Flop
	opt.Grayscale = e.Grayscale
	opt.Format = strings.ToLower(e.ToFormat)
	opt.Quality = e.Quality

	// smartCrop is either a boolean or an object with a padding.
	if len(e.SmartCrop) > 0 {
		var enabled bool
		var params struct {
			Padding int `json:"padding"`
		}
		if err := json.Unmarshal(e.SmartCrop, &enabled); err == nil {
			opt.SmartCrop = enabled
		} else if err := json.Unmarshal(e.SmartCrop, &params); err == nil {
			opt.SmartCrop = true
			opt.SmartCropPadding = params.Padding
		}
	}

	return opt
}
