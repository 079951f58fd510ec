package lambda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	awslambda "github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/PrzemekMalak/serverless-image-handler/apierror"
	"github.com/PrzemekMalak/serverless-image-handler/options"
	"github.com/PrzemekMalak/serverless-image-handler/transform"
)

var (
	_ Transformer = (*Executor)(nil)
	_ Transformer = (*Client)(nil)
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestExecutor_Transform(t *testing.T) {
	ex := NewExecutor(zaptest.NewLogger(t).Sugar())

	out, err := ex.Transform(context.Background(), transform.Input{Image: pngBytes(t, 10, 10), Options: options.Options{Width: 5}})
	require.NoError(t, err)

	m, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 5, m.Bounds().Dx())
}

func TestExecutor_TransformErrors(t *testing.T) {
	ex := NewExecutor(zaptest.NewLogger(t).Sugar())

	_, err := ex.Transform(context.Background(), transform.Input{Image: pngBytes(t, 2, 2), Options: options.Options{Format: "webp"}})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, apierror.CodeUnsupportedFormat, apiErr.Code)

	_, err = ex.Transform(context.Background(), transform.Input{Image: []byte("garbage")})
	apiErr, ok = apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, apierror.CodeTransformFailed, apiErr.Code)
}

func TestExecutor_Handle(t *testing.T) {
	ex := NewExecutor(zaptest.NewLogger(t).Sugar())

	resp, err := ex.Handle(context.Background(), transform.Input{Image: pngBytes(t, 4, 4)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.NotEmpty(t, resp.Image)

	resp, err = ex.Handle(context.Background(), transform.Input{Image: []byte("garbage")})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, apierror.CodeTransformFailed, resp.Code)
	assert.Empty(t, resp.Image)
}

type fakeLambda struct {
	lambdaiface.LambdaAPI
	out   *awslambda.InvokeOutput
	err   error
	input *awslambda.InvokeInput
}

func (f *fakeLambda) InvokeWithContext(_ aws.Context, in *awslambda.InvokeInput, _ ...request.Option) (*awslambda.InvokeOutput, error) {
	f.input = in
	return f.out, f.err
}

func payload(t *testing.T, resp TransformResponse) []byte {
	t.Helper()
	bs, err := json.Marshal(resp)
	require.NoError(t, err)
	return bs
}

func TestClient_Transform(t *testing.T) {
	fake := &fakeLambda{out: &awslambda.InvokeOutput{
		Payload: payload(t, TransformResponse{Status: http.StatusOK, Image: []byte{0xfe, 0xfa}}),
	}}
	c := NewClientWithAPI(fake, "transform-fn", zaptest.NewLogger(t).Sugar())

	img, err := c.Transform(context.Background(), transform.Input{Image: []byte{1, 2, 3}, Options: options.Options{Width: 10}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xfe, 0xfa}, img)

	assert.Equal(t, "transform-fn", aws.StringValue(fake.input.FunctionName))
	assert.Equal(t, awslambda.InvocationTypeRequestResponse, aws.StringValue(fake.input.InvocationType))

	var sent transform.Input
	require.NoError(t, json.Unmarshal(fake.input.Payload, &sent))
	assert.Equal(t, []byte{1, 2, 3}, sent.Image)
	assert.True(t, sent.Options.Equal(options.Options{Width: 10}))
}

func TestClient_TransformClassifiedFailure(t *testing.T) {
	fake := &fakeLambda{out: &awslambda.InvokeOutput{
		Payload: payload(t, TransformResponse{Status: http.StatusBadRequest, Code: apierror.CodeUnsupportedFormat, Message: "nope"}),
	}}
	c := NewClientWithAPI(fake, "transform-fn", zaptest.NewLogger(t).Sugar())

	_, err := c.Transform(context.Background(), transform.Input{})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.New(http.StatusBadRequest, apierror.CodeUnsupportedFormat, "nope"), apiErr)
}

func TestClient_TransformUnclassifiedFailures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeLambda
	}{
		{"invoke error", &fakeLambda{err: errors.New("throttled")}},
		{"function error", &fakeLambda{out: &awslambda.InvokeOutput{FunctionError: aws.String("Unhandled"), Payload: []byte(`{}`)}}},
		{"bad payload", &fakeLambda{out: &awslambda.InvokeOutput{Payload: []byte(`not json`)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClientWithAPI(tt.fake, "transform-fn", zaptest.NewLogger(t).Sugar())
			_, err := c.Transform(context.Background(), transform.Input{})
			require.Error(t, err)
			_, classified := apierror.As(err)
			assert.False(t, classified)
		})
	}
}

func TestClient_TransformEmptyPayload(t *testing.T) {
	for _, raw := range []string{`null`, `{}`, `{"st":200}`, `{"st":204,"im":"AQI="}`} {
		t.Run(raw, func(t *testing.T) {
			fake := &fakeLambda{out: &awslambda.InvokeOutput{Payload: []byte(raw)}}
			c := NewClientWithAPI(fake, "transform-fn", zaptest.NewLogger(t).Sugar())

			img, err := c.Transform(context.Background(), transform.Input{Image: []byte{1}})
			require.Error(t, err)
			assert.Nil(t, img)
			_, classified := apierror.As(err)
			assert.False(t, classified)
		})
	}
}
