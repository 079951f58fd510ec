// This command runs the image transformation as a separate AWS Lambda
// function, invoked synchronously by the image handler.
package main

import (
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/PrzemekMalak/serverless-image-handler/lambda"
)

func main() {
	plainLogger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	logger := plainLogger.Sugar()
	defer logger.Sync()

	awslambda.Start(lambda.NewExecutor(logger).Handle)
}
