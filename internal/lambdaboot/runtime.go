package lambdaboot

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/config"
	"github.com/fpang/synthetic-patients/internal/httpapi"
	"github.com/fpang/synthetic-patients/internal/pipeline"
)

// Version is the build identity injected via -ldflags.
type Version struct {
	CommitHash string
	BuildTime  string
}

// Runtime is everything a pipeline Lambda needs after cold start.
type Runtime struct {
	Config    config.Config
	Pipelines *pipeline.Set
	Close     func() error
}

// Boot performs the full cold start for the named function: configuration,
// secrets, record source, store, models and pipelines. It logs the startup
// summary on success.
func Boot(ctx context.Context, name string, initStart time.Time, v Version) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	awsCfg, err := InitAWS(ctx)
	if err != nil {
		return nil, err
	}
	secretsStart := time.Now()
	params, err := LoadSecrets(ctx, ssm.NewFromConfig(awsCfg), &cfg)
	if err != nil {
		return nil, err
	}
	log.Debug().Dur("elapsed", time.Since(secretsStart)).Msg("Secrets resolved")
	if err := cfg.ValidateLambda(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	source, closeSource, err := NewSource(awsCfg, cfg)
	if err != nil {
		return nil, err
	}
	models, err := pipeline.NewModels(ctx, cfg)
	if err != nil {
		_ = closeSource()
		return nil, err
	}
	set, err := pipeline.Wire(cfg, pipeline.Deps{
		Source: source,
		Store:  NewStore(awsCfg, cfg),
		Models: models,
	})
	if err != nil {
		_ = closeSource()
		return nil, err
	}

	cs := ColdStart(name, cfg, initStart)
	cs.CommitHash, cs.BuildTime = v.CommitHash, v.BuildTime
	cs.Secrets = params
	cs.Log()
	return &Runtime{Config: cfg, Pipelines: set, Close: closeSource}, nil
}

// Defaults maps batch configuration onto query defaults.
func Defaults(cfg config.Config) httpapi.Defaults {
	return httpapi.Defaults{StartFrom: 1, MaxCaseID: cfg.Batch.MaxCaseID, Limit: cfg.Batch.DefaultLimit}
}

// ServerOptions describes a Lambda serving a single pipeline route.
func (rt *Runtime) ServerOptions(service, route string, runner httpapi.Runner) httpapi.ServerOptions {
	return httpapi.ServerOptions{
		Service:    service,
		AuthHeader: rt.Config.Auth.Header,
		Secret:     rt.Config.Secrets.SharedSecret,
		Defaults:   Defaults(rt.Config),
		Pipelines:  map[string]httpapi.Runner{route: runner},
	}
}
