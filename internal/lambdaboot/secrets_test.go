package lambdaboot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpang/synthetic-patients/internal/config"
)

type fakeSSM struct {
	mu     sync.Mutex
	values map[string]string
	asked  []string
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.Name)
	f.asked = append(f.asked, name)
	v, ok := f.values[name]
	if !ok {
		return nil, &types.ParameterNotFound{Message: aws.String(name)}
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: aws.String(v)}}, nil
}

func baseConfig() config.Config {
	return config.Config{
		Records: config.Records{Backend: config.BackendDynamo},
		Models:  config.Models{TextProvider: "gemini", ImageProvider: "gemini"},
		Retry:   config.Retry{Attempts: 1},
		Secrets: config.Secrets{
			GeminiKeyParam:     "/p/gemini",
			OpenAIKeyParam:     "/p/openai",
			SharedSecretParam:  "/p/shared",
			TableAPITokenParam: "/p/table",
		},
	}
}

func TestLoadSecrets_FetchesOnlyMissing(t *testing.T) {
	cfg := baseConfig()
	cfg.Secrets.SharedSecret = "from-env"
	fake := &fakeSSM{values: map[string]string{"/p/gemini": "g-key", "/p/shared": "ignored"}}

	loaded, err := LoadSecrets(context.Background(), fake, &cfg)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"geminiKey": "/p/gemini"}, loaded)
	assert.Equal(t, "g-key", cfg.Secrets.GeminiAPIKey)
	assert.Equal(t, "from-env", cfg.Secrets.SharedSecret)
	assert.Empty(t, cfg.Secrets.OpenAIAPIKey)
	assert.Equal(t, []string{"/p/gemini"}, fake.asked)
}

func TestLoadSecrets_ProviderAndBackendDriven(t *testing.T) {
	cfg := baseConfig()
	cfg.Models.ImageProvider = "openai"
	cfg.Records.Backend = config.BackendTableAPI
	fake := &fakeSSM{values: map[string]string{
		"/p/gemini": "g", "/p/openai": "o", "/p/shared": "s", "/p/table": "t",
	}}

	loaded, err := LoadSecrets(context.Background(), fake, &cfg)
	require.NoError(t, err)
	assert.Len(t, loaded, 4)
	assert.Equal(t, "g", cfg.Secrets.GeminiAPIKey)
	assert.Equal(t, "o", cfg.Secrets.OpenAIAPIKey)
	assert.Equal(t, "s", cfg.Secrets.SharedSecret)
	assert.Equal(t, "t", cfg.Secrets.TableAPIToken)
	assert.Len(t, fake.asked, 4)
}

func TestLoadSecrets_MissingParameterFails(t *testing.T) {
	cfg := baseConfig()
	fake := &fakeSSM{values: map[string]string{"/p/gemini": "g"}}

	_, err := LoadSecrets(context.Background(), fake, &cfg)
	require.Error(t, err)
	var nf *types.ParameterNotFound
	assert.True(t, errors.As(err, &nf))
	assert.Contains(t, err.Error(), "sharedSecret")
	assert.Empty(t, cfg.Secrets.GeminiAPIKey, "no partial assignment on failure")
}

func TestLoadSecrets_NothingMissing(t *testing.T) {
	cfg := baseConfig()
	cfg.Secrets.GeminiAPIKey = "g"
	cfg.Secrets.SharedSecret = "s"
	fake := &fakeSSM{}

	loaded, err := LoadSecrets(context.Background(), fake, &cfg)
	require.NoError(t, err)
	assert.Empty(t, loaded)
	assert.Empty(t, fake.asked)
}
