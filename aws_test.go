package imagehandler

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/PrzemekMalak/serverless-image-handler/analysis"
	"github.com/PrzemekMalak/serverless-image-handler/imagerequest"
	"github.com/PrzemekMalak/serverless-image-handler/processor"
	"github.com/PrzemekMalak/serverless-image-handler/secrets"
	"github.com/PrzemekMalak/serverless-image-handler/storage"
)

func TestNewAWSDependencies(t *testing.T) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String("eu-west-1"),
		Credentials: credentials.AnonymousCredentials,
	})
	require.NoError(t, err)

	for _, fn := range []string{"", "image-transform"} {
		deps := NewAWSDependencies(Config{TransformFunctionName: fn, SourceBuckets: []string{"images"}}, sess, zaptest.NewLogger(t).Sugar())

		assert.IsType(t, &secrets.SSMStore{}, deps.Secrets)
		assert.IsType(t, &storage.S3Store{}, deps.Storage)
		assert.IsType(t, &analysis.RekognitionDetector{}, deps.Detector)
		assert.IsType(t, &imagerequest.Parser{}, deps.Parser)
		assert.IsType(t, &processor.Processor{}, deps.Processor)
	}
}
