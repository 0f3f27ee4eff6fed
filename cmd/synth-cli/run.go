package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/synthetic-patients/internal/batch"
	"github.com/fpang/synthetic-patients/internal/blob"
	"github.com/fpang/synthetic-patients/internal/cli"
	"github.com/fpang/synthetic-patients/internal/config"
	"github.com/fpang/synthetic-patients/internal/httpapi"
	"github.com/fpang/synthetic-patients/internal/lambdaboot"
	"github.com/fpang/synthetic-patients/internal/logging"
	"github.com/fpang/synthetic-patients/internal/pipeline"
)

var headshotsCmd = &cobra.Command{
	Use:   pipeline.NameHeadshots,
	Short: "Generate verified headshots and profile documents",
	RunE:  runPipeline(pipeline.NameHeadshots),
}

var instructionsCmd = &cobra.Command{
	Use:   pipeline.NameInstructions,
	Short: "Build roleplay instructions and upload them in bundles",
	RunE:  runPipeline(pipeline.NameInstructions),
}

var descriptionsCmd = &cobra.Command{
	Use:   pipeline.NameDescriptions,
	Short: "Write a short plain-text description per case",
	RunE:  runPipeline(pipeline.NameDescriptions),
}

// setup loads configuration and builds every pipeline. The returned
// closer releases the record source.
func setup(ctx context.Context) (config.Config, *pipeline.Set, func() error, error) {
	logging.Init()

	cfg, err := config.Load(envFile)
	if err != nil {
		return cfg, nil, nil, err
	}
	if sqlitePath != "" {
		cfg.Records.Backend = config.BackendSQLite
		cfg.Records.SQLitePath = sqlitePath
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Credentials resolve lazily, so this succeeds without AWS access;
	// only the S3 and DynamoDB paths need it to be real.
	awsCfg, err := lambdaboot.InitAWS(ctx)
	if err != nil {
		return cfg, nil, nil, err
	}

	var store blob.Store
	if outDir != "" {
		dir, err := cli.ResolveOutDir(outDir)
		if err != nil {
			return cfg, nil, nil, err
		}
		ds, err := blob.NewDirStore(dir)
		if err != nil {
			return cfg, nil, nil, err
		}
		store = ds
	} else {
		if cfg.Blob.Bucket == "" {
			return cfg, nil, nil, fmt.Errorf("BUCKET_NAME is required unless --out-dir is set")
		}
		store = lambdaboot.NewStore(awsCfg, cfg)
	}

	src, closeSource, err := lambdaboot.NewSource(awsCfg, cfg)
	if err != nil {
		return cfg, nil, nil, err
	}
	models, err := pipeline.NewModels(ctx, cfg)
	if err != nil {
		_ = closeSource()
		return cfg, nil, nil, err
	}
	set, err := pipeline.Wire(cfg, pipeline.Deps{Source: src, Store: store, Models: models})
	if err != nil {
		_ = closeSource()
		return cfg, nil, nil, err
	}
	return cfg, set, closeSource, nil
}

func runPipeline(name string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		cfg, set, closeSource, err := setup(ctx)
		if err != nil {
			return err
		}
		defer closeSource()

		driver, err := set.Driver(name)
		if err != nil {
			return err
		}
		p := batch.Params{
			StartFrom: startFrom,
			EndAt:     endAt,
			Limit:     limit,
			DryRun:    dryRun,
			Overwrite: overwrite,
			Debug:     debug,
		}
		if p.EndAt == 0 {
			p.EndAt = cfg.Batch.MaxCaseID
		}
		if p.Limit == 0 {
			p.Limit = cfg.Batch.DefaultLimit
		}

		start := time.Now()
		run, err := driver.Run(ctx, p)
		if err != nil {
			return err
		}
		log.Info().Msg(cli.Summarize(run, time.Since(start)))

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(httpapi.NewBatchResponse(run))
	}
}
