package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type mockSecrets struct {
	SecretsAPI
	ids   []string
	value string
	err   error
}

func (m *mockSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	m.ids = append(m.ids, aws.ToString(in.SecretId))
	if m.err != nil {
		return nil, m.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(m.value)}, nil
}

type mockParams struct {
	ParameterAPI
	name  string
	value string
}

func (m *mockParams) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	m.name = aws.ToString(in.Name)
	if !aws.ToBool(in.WithDecryption) {
		return nil, errors.New("decryption required")
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: aws.String(m.value)}}, nil
}

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) Get(_ context.Context, key string) (string, error) {
	p.calls++
	return "v-" + key, p.err
}

func TestEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	v, err := Env{}.Get(context.Background(), "openai_api_key")
	if err != nil || v != "sk-test" {
		t.Fatalf("got %q %v", v, err)
	}
	if _, err := (Env{}).Get(context.Background(), "HOLOCRON_NOT_SET_ANYWHERE"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAWS_ResolvesARNThroughSSM(t *testing.T) {
	sm := &mockSecrets{value: `{"OPENAI_API_KEY":"sk-aws"}`}
	params := &mockParams{value: "arn:aws:secretsmanager:us-west-2:1:secret:sw"}
	p := &AWS{Secrets: sm, Params: params, Parameter: "/myproject/starwars/secret-arn"}

	v, err := p.Get(context.Background(), "OPENAI_API_KEY")
	if err != nil {
		t.Fatal(err)
	}
	if v != "sk-aws" {
		t.Errorf("got %q", v)
	}
	if params.name != "/myproject/starwars/secret-arn" || sm.ids[0] != params.value {
		t.Errorf("unexpected lookups: param=%q ids=%v", params.name, sm.ids)
	}
}

func TestAWS_DirectSecretID(t *testing.T) {
	sm := &mockSecrets{value: `{"OPENAI_API_KEY":"sk"}`}
	p := &AWS{Secrets: sm, SecretID: "sw-secret"}
	if _, err := p.Get(context.Background(), "OPENAI_API_KEY"); err != nil {
		t.Fatal(err)
	}
	if sm.ids[0] != "sw-secret" {
		t.Errorf("ids = %v", sm.ids)
	}
}

func TestAWS_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := (&AWS{Secrets: &mockSecrets{value: `{}`}, SecretID: "s"}).Get(ctx, "K"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := (&AWS{Secrets: &mockSecrets{value: `not json`}, SecretID: "s"}).Get(ctx, "K"); err == nil {
		t.Error("expected decode error")
	}
	boom := errors.New("access denied")
	if _, err := (&AWS{Secrets: &mockSecrets{err: boom}, SecretID: "s"}).Get(ctx, "K"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped error, got %v", err)
	}
	if _, err := (&AWS{Secrets: &mockSecrets{}}).Get(ctx, "K"); err == nil {
		t.Error("expected configuration error")
	}
}

func TestCache(t *testing.T) {
	next := &countingProvider{}
	c := NewCache(next, time.Minute)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if v, _ := c.Get(context.Background(), "k"); v != "v-k" {
			t.Fatalf("got %q", v)
		}
	}
	if next.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", next.calls)
	}
	now = now.Add(2 * time.Minute)
	c.Get(context.Background(), "k")
	if next.calls != 2 {
		t.Errorf("expected refresh after ttl, got %d calls", next.calls)
	}
}

func TestCache_ErrorsNotCached(t *testing.T) {
	next := &countingProvider{err: errors.New("down")}
	c := NewCache(next, time.Minute)
	c.Get(context.Background(), "k")
	c.Get(context.Background(), "k")
	if next.calls != 2 {
		t.Errorf("errors must not be cached, got %d calls", next.calls)
	}
}
