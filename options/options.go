// Package options describes the edits that can be applied to a source image
// and how they are read from a request query string.
package options

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Options specifies transformations to be performed on the requested image.
type Options struct {
	// Width and Height are in pixels when greater than 1, and a fraction of
	// the source dimension when between 0 and 1. Zero keeps the aspect ratio.
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// Fit scales the image to fit within Width and Height instead of
	// cropping to fill them.
	Fit bool `json:"fit,omitempty"`

	// Rotate is counter-clockwise, in degrees.
	Rotate int `json:"rotate,omitempty"`

	FlipVertical   bool `json:"flipVertical,omitempty"`
	FlipHorizontal bool `json:"flipHorizontal,omitempty"`

	// Quality of the output image, 1-100. Zero uses the encoder default.
	Quality int `json:"quality,omitempty"`

	// Signature is the request signature as sent by the client.
	Signature string `json:"signature,omitempty"`

	// ScaleUp allows growing past the source dimensions.
	ScaleUp bool `json:"scaleUp,omitempty"`

	// Format of the output image, e.g. "jpeg" or "png".
	Format string `json:"format,omitempty"`

	// Crop rectangle applied before resizing. Zero width or height extends
	// the rectangle to the image edge.
	CropX      int `json:"cropX,omitempty"`
	CropY      int `json:"cropY,omitempty"`
	CropWidth  int `json:"cropWidth,omitempty"`
	CropHeight int `json:"cropHeight,omitempty"`

	// SmartCrop centers the crop on the first detected face.
	SmartCrop        bool `json:"smartCrop,omitempty"`
	SmartCropPadding int  `json:"smartCropPadding,omitempty"`

	Grayscale bool `json:"grayscale,omitempty"`
}

// Equal compares two Options, allowing for float rounding in dimensions.
func (o Options) Equal(other Options) bool {
	const epsilon = 1e-9
	if math.Abs(o.Width-other.Width) > epsilon || math.Abs(o.Height-other.Height) > epsilon {
		return false
	}
	o.Width, o.Height = other.Width, other.Height
	return o == other
}

// Transforms reports whether any edit besides signing is requested.
func (o Options) Transforms() bool {
	stripped := o
	stripped.Signature = ""
	stripped.ScaleUp = false
	return stripped != Options{}
}

func (o Options) String() string {
	opts := []string{formatFloat(o.Width) + "x" + formatFloat(o.Height)}
	if o.Fit {
		opts = append(opts, "fit")
	}
	if o.Rotate != 0 {
		opts = append(opts, "r"+strconv.Itoa(o.Rotate))
	}
	if o.FlipVertical {
		opts = append(opts, "fv")
	}
	if o.FlipHorizontal {
		opts = append(opts, "fh")
	}
	if o.Quality != 0 {
		opts = append(opts, "q"+strconv.Itoa(o.Quality))
	}
	if o.Signature != "" {
		opts = append(opts, "s"+o.Signature)
	}
	if o.ScaleUp {
		opts = append(opts, "scaleUp")
	}
	if o.Format != "" {
		opts = append(opts, o.Format)
	}
	if o.CropX != 0 {
		opts = append(opts, "cx"+strconv.Itoa(o.CropX))
	}
	if o.CropY != 0 {
		opts = append(opts, "cy"+strconv.Itoa(o.CropY))
	}
	if o.CropWidth != 0 {
		opts = append(opts, "cw"+strconv.Itoa(o.CropWidth))
	}
	if o.CropHeight != 0 {
		opts = append(opts, "ch"+strconv.Itoa(o.CropHeight))
	}
	if o.SmartCrop {
		opts = append(opts, "smartcrop")
	}
	if o.SmartCropPadding != 0 {
		opts = append(opts, "p"+strconv.Itoa(o.SmartCropPadding))
	}
	if o.Grayscale {
		opts = append(opts, "g")
	}
	return strings.Join(opts, ",")
}

// ParseFormValues reads options from query string values on top of the
// given defaults. Unknown keys and malformed values are ignored.
//
// Recognized keys: width, height, size, dpr, mode (fit, crop, smartcrop),
// rotate, flip (v, h; may repeat), quality, signature, format,
// crop (x,y,width,height), grayscale and padding.
func ParseFormValues(values url.Values, defaults Options) Options {
	opt := defaults

	dpr := 1.0
	if v, err := strconv.ParseFloat(values.Get("dpr"), 64); err == nil && v > 0 {
		dpr = v
	}

	if v, err := strconv.ParseFloat(values.Get("size"), 64); err == nil {
		opt.Width = v * dpr
		opt.Height = v * dpr
	}
	if v, err := strconv.ParseFloat(values.Get("width"), 64); err == nil {
		opt.Width = v * dpr
	}
	if v, err := strconv.ParseFloat(values.Get("height"), 64); err == nil {
		opt.Height = v * dpr
	}
	if opt.Width > 0 && opt.Height > 0 {
		opt.Fit = true
	}

	switch values.Get("mode") {
	case "fit":
		opt.Fit = true
	case "crop", "smartcrop":
		opt.SmartCrop = true
		opt.Fit = false
	}

	if v, err := strconv.Atoi(values.Get("rotate")); err == nil {
		opt.Rotate = v
	}

	for _, flip := range values["flip"] {
		switch flip {
		case "v":
			opt.FlipVertical = true
		case "h":
			opt.FlipHorizontal = true
		}
	}

	if v, err := strconv.Atoi(values.Get("quality")); err == nil {
		opt.Quality = v
	}

	if v := values.Get("signature"); v != "" {
		opt.Signature = v
	}

	if v := values.Get("format"); v != "" {
		opt.Format = strings.ToLower(v)
	}

	if x, y, w, h, ok := parseCrop(values.Get("crop")); ok {
		opt.CropX, opt.CropY, opt.CropWidth, opt.CropHeight = x, y, w, h
	}

	if v, err := strconv.ParseBool(values.Get("grayscale")); err == nil {
		opt.Grayscale = v
	}

	if v, err := strconv.Atoi(values.Get("padding")); err == nil {
		opt.SmartCropPadding = v
	}

	return opt
}

func parseCrop(s string) (x, y, w, h int, ok bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, false
	}
	var vals [4]int
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0, 0, 0, 0, false
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], vals[3], true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
