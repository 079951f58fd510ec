// Package secrets reads the request signing secret from AWS Systems Manager
// Parameter Store.
package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
)

// Store returns the value of a named parameter.
type Store interface {
	GetParameter(ctx context.Context, name string, decrypt bool) (string, error)
}

// SSMStore is a Store backed by Parameter Store.
type SSMStore struct {
	c ssmiface.SSMAPI
}

func NewSSMStore(p client.ConfigProvider) *SSMStore {
	return &SSMStore{c: ssm.New(p)}
}

func NewSSMStoreWithClient(c ssmiface.SSMAPI) *SSMStore {
	return &SSMStore{c: c}
}

// GetParameter fails when the parameter is missing, access is denied or the
// parameter has no value.
func (s *SSMStore) GetParameter(ctx context.Context, name string, decrypt bool) (string, error) {
	out, err := s.c.GetParameterWithContext(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(decrypt),
	})
	if err != nil {
		return "", fmt.Errorf("getting parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %q has no value", name)
	}
	return aws.StringValue(out.Parameter.Value), nil
}
