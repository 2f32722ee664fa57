package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"custom-gateway/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManager reads a JSON secret holding the settings keys, e.g.
// {"custom_gateway_api_key":"...","custom_gateway_secret":"..."}.
// The secret is fetched on every call.
type SecretsManager struct {
	client secretsAPI
	name   string
}

// NewSecretsManager loads the default AWS config. A non-empty endpoint
// overrides the service URL, for LocalStack.
func NewSecretsManager(ctx context.Context, name, endpoint string) (*SecretsManager, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &SecretsManager{client: client, name: name}, nil
}

func (s *SecretsManager) Credentials(ctx context.Context) (domain.GatewayCredentials, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(s.name)})
	if err != nil {
		return domain.GatewayCredentials{}, fmt.Errorf("get secret %s: %w", s.name, err)
	}
	if out.SecretString == nil {
		return domain.GatewayCredentials{}, fmt.Errorf("secret %s has no string value", s.name)
	}

	values := make(map[string]any)
	if err := json.Unmarshal([]byte(*out.SecretString), &values); err != nil {
		return domain.GatewayCredentials{}, fmt.Errorf("decode secret %s: %w", s.name, err)
	}
	return credentialsFromValues(stringify(values))
}

// stringify accepts test_mode as either a JSON bool or a string.
func stringify(values map[string]any) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}
