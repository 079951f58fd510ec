package imagehandler

import (
	"github.com/aws/aws-sdk-go/aws/client"
	"go.uber.org/zap"

	"github.com/PrzemekMalak/serverless-image-handler/analysis"
	"github.com/PrzemekMalak/serverless-image-handler/imagerequest"
	"github.com/PrzemekMalak/serverless-image-handler/lambda"
	"github.com/PrzemekMalak/serverless-image-handler/processor"
	"github.com/PrzemekMalak/serverless-image-handler/secrets"
	"github.com/PrzemekMalak/serverless-image-handler/storage"
)

// NewAWSDependencies wires the collaborators to S3, SSM Parameter Store and
// Rekognition. Images are transformed by the function named in cfg, or in
// process when none is configured.
func NewAWSDependencies(cfg Config, p client.ConfigProvider, logger *zap.SugaredLogger) Dependencies {
	var transformer lambda.Transformer = lambda.NewExecutor(logger)
	if cfg.TransformFunctionName != "" {
		transformer = lambda.NewClient(p, cfg.TransformFunctionName, logger)
	}

	return Dependencies{
		Secrets:  secrets.NewSSMStore(p),
		Storage:  storage.NewS3Store(p),
		Detector: analysis.NewRekognitionDetector(p),
		Parser: imagerequest.NewParser(imagerequest.Config{
			SignatureEnabled: cfg.SignatureEnabled,
			SourceBuckets:    cfg.SourceBuckets,
		}, logger),
		Processor: processor.New(transformer, logger),
	}
}
