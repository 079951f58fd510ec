// Package processor turns a validated image request into the base64 body of
// the response.
package processor

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/PrzemekMalak/serverless-image-handler/analysis"
	"github.com/PrzemekMalak/serverless-image-handler/apierror"
	"github.com/PrzemekMalak/serverless-image-handler/imagerequest"
	"github.com/PrzemekMalak/serverless-image-handler/lambda"
	"github.com/PrzemekMalak/serverless-image-handler/storage"
	"github.com/PrzemekMalak/serverless-image-handler/transform"
)

// MaxBodySize is the largest base64 body a Lambda response can carry.
const MaxBodySize = 6 * 1024 * 1024

// Processor applies the edits of an ImageRequest.
type Processor struct {
	logger      *zap.SugaredLogger
	transformer lambda.Transformer
}

// New returns a Processor that runs transformations with transformer, which
// is either an in-process lambda.Executor or a remote lambda.Client.
func New(transformer lambda.Transformer, logger *zap.SugaredLogger) *Processor {
	return &Processor{
		logger:      logger,
		transformer: transformer,
	}
}

// Process returns the image for req as base64. Failures caused by the
// request are *apierror.Error; failures of the remote transform function may
// be unclassified.
func (p *Processor) Process(ctx context.Context, store storage.Store, detector analysis.FaceDetector, req *imagerequest.ImageRequest) (string, error) {
	logctx := p.logger.With(
		"func", "Process",
		"bucket", req.Bucket,
		"key", req.Key,
	)

	img := req.OriginalImage
	if req.Edited() {
		in := transform.Input{
			Image:   req.OriginalImage,
			Options: req.Edits,
		}

		if req.Edits.SmartCrop {
			face, err := firstFace(ctx, detector, req.OriginalImage)
			if err != nil {
				return "", err
			}
			in.Face = face
		}

		if req.Overlay != nil {
			overlay, err := fetchOverlay(ctx, store, req.Overlay)
			if err != nil {
				return "", err
			}
			in.Overlay = overlay
		}

		then := time.Now()
		out, err := p.transformer.Transform(ctx, in)
		if err != nil {
			logctx.Warnw("Transform failed",
				"edits", req.Edits.String(),
				"error", err.Error(),
			)
			return "", err
		}
		logctx.Debugw("Transformed image",
			"edits", req.Edits.String(),
			"duration", time.Since(then),
		)
		img = out
	}

	body := base64.StdEncoding.EncodeToString(img)
	if len(body) > MaxBodySize {
		return "", apierror.New(http.StatusRequestEntityTooLarge, apierror.CodeTooLargeImage,
			"The converted image is too large to return.")
	}
	return body, nil
}

// firstFace returns the first face found in img.
func firstFace(ctx context.Context, detector analysis.FaceDetector, img []byte) (*analysis.BoundingBox, error) {
	if detector == nil {
		return nil, apierror.New(http.StatusInternalServerError, apierror.CodeAnalysisFailed,
			"Face detection is not available.")
	}

	faces, err := detector.DetectFaces(ctx, img)
	if err != nil {
		return nil, apierror.Newf(http.StatusInternalServerError, apierror.CodeAnalysisFailed,
			"An unexpected error occurred while analyzing the image: %s", err.Error())
	}
	if len(faces) == 0 {
		return nil, apierror.New(http.StatusBadRequest, apierror.CodeFaceIndexOutOfRange,
			"You have provided a FaceIndex value that exceeds the length of the zero-based detectedFaces array. Please specify a value that is in-range.")
	}
	return &faces[0], nil
}

func fetchOverlay(ctx context.Context, store storage.Store, overlay *imagerequest.Overlay) ([]byte, error) {
	obj, err := store.GetObject(ctx, overlay.Bucket, overlay.Key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apierror.Newf(http.StatusNotFound, apierror.CodeNoSuchKey,
				"The overlay image %s does not exist.", overlay.Key)
		}
		return nil, apierror.New(http.StatusInternalServerError, apierror.CodeCannotAccessImage, err.Error())
	}
	return obj.Body, nil
}
