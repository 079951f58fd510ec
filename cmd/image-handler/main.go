// This command runs the image handler as an AWS Lambda function.
package main

import (
	"fmt"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws/session"
	raven "github.com/getsentry/raven-go"
	"github.com/prometheus/client_golang/prometheus"

	imagehandler "github.com/PrzemekMalak/serverless-image-handler"
)

func main() {
	cfg, err := imagehandler.LoadConfig(imagehandler.NewViper())
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := imagehandler.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.SentryDSN != "" {
		if err := raven.SetDSN(cfg.SentryDSN); err != nil {
			logger.Warnw("Invalid SENTRY_DSN, error reporting disabled",
				"error", err.Error(),
			)
		}
	}

	sess, err := session.NewSession()
	if err != nil {
		logger.Fatalw("Could not create AWS session",
			"error", err.Error(),
		)
	}

	handler := imagehandler.NewHandler(cfg,
		imagehandler.NewAWSDependencies(cfg, sess, logger),
		logger,
		// Not exported from Lambda; the local serve command exposes /metrics.
		imagehandler.NewMetrics(prometheus.DefaultRegisterer),
	)

	logger.Infow("Starting image handler",
		"signatureEnabled", cfg.SignatureEnabled,
		"fallbackEnabled", cfg.FallbackEnabled,
		"sourceBuckets", cfg.SourceBuckets,
		"transformFunction", cfg.TransformFunctionName,
	)
	awslambda.Start(handler.Handle)
}
