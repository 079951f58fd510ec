package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	awslambda "github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"
	"go.uber.org/zap"

	"github.com/PrzemekMalak/serverless-image-handler/apierror"
	"github.com/PrzemekMalak/serverless-image-handler/transform"
)

// Client transforms images by invoking the transform function synchronously.
type Client struct {
	logger       *zap.SugaredLogger
	c            lambdaiface.LambdaAPI
	functionName string
}

func NewClient(p client.ConfigProvider, functionName string, logger *zap.SugaredLogger) *Client {
	return NewClientWithAPI(awslambda.New(p), functionName, logger)
}

func NewClientWithAPI(c lambdaiface.LambdaAPI, functionName string, logger *zap.SugaredLogger) *Client {
	return &Client{
		logger:       logger,
		c:            c,
		functionName: functionName,
	}
}

func (c *Client) Transform(ctx context.Context, in transform.Input) ([]byte, error) {
	reqPayload, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	c.logger.Infow("Calling Transform over Lambda",
		"functionName", c.functionName,
		"options", in.Options.String(),
	)

	invokeOutput, err := c.c.InvokeWithContext(ctx, &awslambda.InvokeInput{
		FunctionName:   aws.String(c.functionName),
		InvocationType: aws.String(awslambda.InvocationTypeRequestResponse), // this makes it synchronous
		Payload:        reqPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", c.functionName, err)
	}
	if invokeOutput.FunctionError != nil {
		return nil, fmt.Errorf("transform function %s failed: %s: %s",
			c.functionName, aws.StringValue(invokeOutput.FunctionError), string(invokeOutput.Payload))
	}

	var resp TransformResponse
	if err := json.Unmarshal(invokeOutput.Payload, &resp); err != nil {
		return nil, fmt.Errorf("decoding transform response: %w", err)
	}

	if resp.Status >= http.StatusBadRequest {
		return nil, apierror.New(resp.Status, resp.Code, resp.Message)
	}
	if resp.Status != http.StatusOK || len(resp.Image) == 0 {
		return nil, fmt.Errorf("transform function %s returned status %d without an image", c.functionName, resp.Status)
	}
	return resp.Image, nil
}
