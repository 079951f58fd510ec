// Package transform applies image edits in process.
package transform

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register gif format
	_ "image/jpeg" // register jpeg format
	_ "image/png"  // register png format
	"math"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // register bmp format
	_ "golang.org/x/image/tiff" // register tiff format
	_ "golang.org/x/image/webp" // register webp format

	"github.com/PrzemekMalak/serverless-image-handler/analysis"
	"github.com/PrzemekMalak/serverless-image-handler/options"
)

// ErrUnsupportedFormat is returned when the output format cannot be encoded.
var ErrUnsupportedFormat = errors.New("unsupported output format")

var contentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"tiff": "image/tiff",
	"bmp":  "image/bmp",
}

// NormalizeFormat maps aliases such as "jpg" or "tif" to canonical names.
func NormalizeFormat(format string) string {
	switch f := strings.ToLower(format); f {
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	default:
		return f
	}
}

// Encodable reports whether images can be encoded in format.
func Encodable(format string) bool {
	_, ok := contentTypes[NormalizeFormat(format)]
	return ok
}

// ContentType returns the MIME type of an encodable format, or "" if the
// format is unknown.
func ContentType(format string) string {
	return contentTypes[NormalizeFormat(format)]
}

// FormatFromContentType is the inverse of ContentType, also recognizing
// formats that can only be decoded.
func FormatFromContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "image/webp" {
		return "webp"
	}
	for format, t := range contentTypes {
		if t == ct {
			return format
		}
	}
	return ""
}

// Input is everything a transformation needs. It is also the payload sent
// to a remote transform function.
type Input struct {
	Image   []byte                `json:"im"`
	Options options.Options       `json:"o"`
	Face    *analysis.BoundingBox `json:"f,omitempty"`

	// Overlay is an encoded image drawn centered on top of the result.
	Overlay []byte `json:"ov,omitempty"`
}

// Transform decodes the image, applies the options and encodes the result.
// The output format is Options.Format if set, otherwise the source format.
// Face is only used for smart crops.
func Transform(in Input) ([]byte, error) {
	opt := in.Options

	m, format, err := image.Decode(bytes.NewReader(in.Image))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	var overlay image.Image
	if len(in.Overlay) > 0 {
		if overlay, _, err = image.Decode(bytes.NewReader(in.Overlay)); err != nil {
			return nil, fmt.Errorf("decoding overlay: %w", err)
		}
	}

	if opt.Format != "" {
		format = opt.Format
	}
	format = NormalizeFormat(format)
	if !Encodable(format) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	m = transformImage(m, opt, in.Face)
	if overlay != nil {
		m = imaging.OverlayCenter(m, overlay, 1.0)
	}

	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	var encodeOpts []imaging.EncodeOption
	if opt.Quality > 0 && opt.Quality <= 100 {
		encodeOpts = append(encodeOpts, imaging.JPEGQuality(opt.Quality))
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, m, f, encodeOpts...); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// transformImage crops, resizes, rotates and flips m, in that order.
func transformImage(m image.Image, opt options.Options, face *analysis.BoundingBox) image.Image {
	if r, ok := cropRect(m.Bounds(), opt); ok {
		m = imaging.Crop(m, r)
	}

	if opt.SmartCrop && face != nil {
		if r, ok := faceRect(m.Bounds(), *face, opt.SmartCropPadding); ok {
			m = imaging.Crop(m, r)
		}
	}

	if w, h, resize := resizeParams(m, opt); resize {
		switch {
		case opt.Fit && w > 0 && h > 0:
			m = imaging.Fit(m, w, h, imaging.Lanczos)
		case w == 0 || h == 0:
			m = imaging.Resize(m, w, h, imaging.Lanczos)
		default:
			m = imaging.Fill(m, w, h, imaging.Center, imaging.Lanczos)
		}
	}

	switch rotate := ((opt.Rotate % 360) + 360) % 360; rotate {
	case 0:
	case 90:
		m = imaging.Rotate90(m)
	case 180:
		m = imaging.Rotate180(m)
	case 270:
		m = imaging.Rotate270(m)
	default:
		m = imaging.Rotate(m, float64(rotate), color.Transparent)
	}

	if opt.FlipVertical {
		m = imaging.FlipV(m)
	}
	if opt.FlipHorizontal {
		m = imaging.FlipH(m)
	}
	if opt.Grayscale {
		m = imaging.Grayscale(m)
	}

	return m
}

// cropRect returns the explicit crop rectangle clipped to bounds. Zero
// width or height extends to the image edge.
func cropRect(bounds image.Rectangle, opt options.Options) (image.Rectangle, bool) {
	if opt.CropX == 0 && opt.CropY == 0 && opt.CropWidth == 0 && opt.CropHeight == 0 {
		return image.Rectangle{}, false
	}

	lo := image.Pt(bounds.Min.X+opt.CropX, bounds.Min.Y+opt.CropY)
	hi := bounds.Max
	if opt.CropWidth > 0 {
		hi.X = lo.X + opt.CropWidth
	}
	if opt.CropHeight > 0 {
		hi.Y = lo.Y + opt.CropHeight
	}

	r := image.Rectangle{Min: lo, Max: hi}.Intersect(bounds)
	if r.Empty() || r == bounds {
		return image.Rectangle{}, false
	}
	return r, true
}

// faceRect converts a face box into pixels, grows it by padding on every
// side and clips it to bounds.
func faceRect(bounds image.Rectangle, face analysis.BoundingBox, padding int) (image.Rectangle, bool) {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())

	left := int(math.Round(face.Left*w)) - padding
	top := int(math.Round(face.Top*h)) - padding
	right := int(math.Round((face.Left+face.Width)*w)) + padding
	bottom := int(math.Round((face.Top+face.Height)*h)) + padding

	r := image.Rect(left, top, right, bottom).Add(bounds.Min).Intersect(bounds)
	if r.Empty() {
		return image.Rectangle{}, false
	}
	return r, true
}

// resizeParams resolves fractional dimensions against m and reports
// whether a resize is needed at all.
func resizeParams(m image.Image, opt options.Options) (w, h int, resize bool) {
	imgW := m.Bounds().Dx()
	imgH := m.Bounds().Dy()

	w = dimension(opt.Width, imgW)
	h = dimension(opt.Height, imgH)

	if !opt.ScaleUp {
		if w > imgW {
			w = imgW
		}
		if h > imgH {
			h = imgH
		}
	}

	if (w == imgW || w == 0) && (h == imgH || h == 0) {
		return 0, 0, false
	}
	return w, h, true
}

// maxDimension bounds requested sizes so they always fit in an int.
const maxDimension = 16384

func dimension(v float64, original int) int {
	switch {
	case v > 0 && v < 1:
		return int(float64(original) * v)
	case v < 0 || math.IsNaN(v):
		return 0
	case v > maxDimension:
		return maxDimension
	default:
		return int(v)
	}
}
