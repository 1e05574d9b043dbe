package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// SecretsAPI is the part of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ParameterAPI is the part of the SSM client used here.
type ParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// AWS reads keys from a JSON secret in Secrets Manager. The secret is named
// by SecretID or, when that is empty, by the value of the SSM parameter
// Parameter.
type AWS struct {
	Secrets   SecretsAPI
	Params    ParameterAPI
	SecretID  string
	Parameter string
}

// NewAWS builds an AWS provider from an SDK config.
func NewAWS(cfg aws.Config, secretID, parameter string) *AWS {
	return &AWS{
		Secrets:   secretsmanager.NewFromConfig(cfg),
		Params:    ssm.NewFromConfig(cfg),
		SecretID:  secretID,
		Parameter: parameter,
	}
}

func (a *AWS) secretID(ctx context.Context) (string, error) {
	if a.SecretID != "" {
		return a.SecretID, nil
	}
	if a.Parameter == "" || a.Params == nil {
		return "", fmt.Errorf("secrets: no secret id or ssm parameter configured")
	}
	out, err := a.Params.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(a.Parameter),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("secrets: ssm get %s: %w", a.Parameter, err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", fmt.Errorf("%w: ssm parameter %s is empty", ErrNotFound, a.Parameter)
	}
	return aws.ToString(out.Parameter.Value), nil
}

func (a *AWS) Get(ctx context.Context, key string) (string, error) {
	id, err := a.secretID(ctx)
	if err != nil {
		return "", err
	}
	out, err := a.Secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)})
	if err != nil {
		return "", fmt.Errorf("secrets: get secret value: %w", err)
	}
	var data map[string]string
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &data); err != nil {
		return "", fmt.Errorf("secrets: decode secret %s: %w", id, err)
	}
	v, ok := data[key]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v, nil
}
