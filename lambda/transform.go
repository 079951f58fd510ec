// Package lambda runs image transformations either in process or in a
// separate transform function invoked over the Lambda API.
package lambda

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/PrzemekMalak/serverless-image-handler/apierror"
	"github.com/PrzemekMalak/serverless-image-handler/transform"
)

// Transformer applies edits to an encoded image. The Executor returns every
// failure as *apierror.Error; the Client may also fail unclassified when the
// transform function cannot be reached.
type Transformer interface {
	Transform(ctx context.Context, in transform.Input) ([]byte, error)
}

// TransformResponse is the payload returned by the transform function.
type TransformResponse struct {
	Status  int    `json:"st"`
	Code    string `json:"co,omitempty"`
	Message string `json:"me,omitempty"`
	Image   []byte `json:"im,omitempty"`
}

// Executor transforms images in the current process.
type Executor struct {
	logger *zap.SugaredLogger
}

func NewExecutor(logger *zap.SugaredLogger) *Executor {
	return &Executor{logger: logger}
}

func (ex *Executor) Transform(ctx context.Context, in transform.Input) ([]byte, error) {
	logctx := ex.logger.With(
		"func", "Transform",
		"options", in.Options.String(),
	)

	if err := ctx.Err(); err != nil {
		return nil, apierror.New(http.StatusInternalServerError, apierror.CodeTransformFailed, err.Error())
	}

	then := time.Now()

	out, err := transform.Transform(in)
	if err != nil {
		logctx.Warnw("Could not transform",
			"Error", err.Error(),
		)
		if errors.Is(err, transform.ErrUnsupportedFormat) {
			return nil, apierror.New(http.StatusBadRequest, apierror.CodeUnsupportedFormat, err.Error())
		}
		return nil, apierror.Newf(http.StatusInternalServerError, apierror.CodeTransformFailed, "Error transforming: %s", err.Error())
	}

	logctx.Infow("Transformed",
		"duration", time.Since(then),
		"inputBytes", len(in.Image),
		"outputBytes", len(out),
	)

	return out, nil
}

// Handle serves a request inside the transform function. Errors are
// carried in the response so the caller can classify them.
func (ex *Executor) Handle(ctx context.Context, in transform.Input) (*TransformResponse, error) {
	img, err := ex.Transform(ctx, in)
	if err != nil {
		apiErr, ok := apierror.As(err)
		if !ok {
			apiErr = apierror.New(http.StatusInternalServerError, apierror.CodeTransformFailed, err.Error())
		}
		return &TransformResponse{Status: apiErr.Status, Code: apiErr.Code, Message: apiErr.Message}, nil
	}
	return &TransformResponse{Status: http.StatusOK, Image: img}, nil
}
