package lambdaboot

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/synthetic-patients/internal/config"
	"github.com/fpang/synthetic-patients/internal/retry"
)

// SSMAPI is the subset of the SSM client used here.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// secretSlot pairs a secret field with its parameter path.
type secretSlot struct {
	label string
	param string
	dst   *string
}

// slots lists the secrets cfg needs that are not already set.
func slots(cfg *config.Config) []secretSlot {
	s := &cfg.Secrets
	var out []secretSlot
	add := func(label, param string, dst *string) {
		if *dst == "" && param != "" {
			out = append(out, secretSlot{label: label, param: param, dst: dst})
		}
	}
	add("sharedSecret", s.SharedSecretParam, &s.SharedSecret)
	if cfg.Models.NeedsGemini() {
		add("geminiKey", s.GeminiKeyParam, &s.GeminiAPIKey)
	}
	if cfg.Models.NeedsOpenAI() {
		add("openaiKey", s.OpenAIKeyParam, &s.OpenAIAPIKey)
	}
	if cfg.Records.Backend == config.BackendTableAPI {
		add("tableApiToken", s.TableAPITokenParam, &s.TableAPIToken)
	}
	return out
}

// LoadSecrets fills every missing secret in cfg from SSM Parameter Store,
// fetching them concurrently. Secrets already set from the environment are
// left alone. It returns the parameter path read for each secret label.
func LoadSecrets(ctx context.Context, client SSMAPI, cfg *config.Config) (map[string]string, error) {
	loaded := make(map[string]string)
	pending := slots(cfg)
	if len(pending) == 0 {
		return loaded, nil
	}
	policy := retry.NewPolicy(cfg.Retry.Attempts, cfg.Retry.BaseDelay).Named("ssm")
	values := make([]string, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	for i, slot := range pending {
		g.Go(func() error {
			start := time.Now()
			v, err := retry.Do(gctx, policy, func(ctx context.Context) (string, error) {
				out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
					Name:           aws.String(slot.param),
					WithDecryption: aws.Bool(true),
				})
				if err != nil {
					return "", err
				}
				if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
					return "", fmt.Errorf("parameter %s is empty", slot.param)
				}
				return aws.ToString(out.Parameter.Value), nil
			})
			if err != nil {
				return fmt.Errorf("read %s from SSM (%s): %w", slot.label, slot.param, err)
			}
			values[i] = v
			log.Debug().Str("param", slot.param).Dur("elapsed", time.Since(start)).Msg("Secret loaded from SSM")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, slot := range pending {
		*slot.dst = values[i]
		loaded[slot.label] = slot.param
	}
	return loaded, nil
}
