// Package lambdaboot holds the cold-start bootstrap shared by every Lambda:
// AWS config, secret resolution from SSM, the record source, the S3 store
// and the startup summary.
package lambdaboot

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/blob"
	"github.com/fpang/synthetic-patients/internal/config"
	"github.com/fpang/synthetic-patients/internal/logging"
	"github.com/fpang/synthetic-patients/internal/records"
	"github.com/fpang/synthetic-patients/internal/retry"
)

// InitAWS loads the default AWS config.
func InitAWS(ctx context.Context) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return cfg, nil
}

// NewStore creates the S3-backed artifact store.
func NewStore(awsCfg aws.Config, cfg config.Config) *blob.S3Store {
	client := s3.NewFromConfig(awsCfg)
	return blob.NewS3Store(client, s3.NewPresignClient(client), blob.S3Options{
		Bucket:        cfg.Blob.Bucket,
		PublicBaseURL: cfg.Blob.PublicBaseURL,
		PresignExpiry: cfg.Blob.PresignExpiry,
	}, retry.NewPolicy(cfg.Retry.Attempts, cfg.Retry.BaseDelay).Named("s3"))
}

// NewSource opens the configured record backend. The returned closer is
// never nil.
func NewSource(awsCfg aws.Config, cfg config.Config) (records.Source, func() error, error) {
	policy := retry.NewPolicy(cfg.Retry.Attempts, cfg.Retry.BaseDelay).Named("records")
	noop := func() error { return nil }
	switch cfg.Records.Backend {
	case config.BackendDynamo:
		return records.NewDynamoSource(dynamodb.NewFromConfig(awsCfg), cfg.Records.Table, cfg.Records.KeyAttr, policy), noop, nil
	case config.BackendTableAPI:
		return records.NewTableAPISource(records.TableAPIOptions{
			BaseURL:  cfg.Records.TableAPI,
			BaseID:   cfg.Records.BaseID,
			Table:    cfg.Records.Table,
			KeyField: cfg.Records.KeyAttr,
			Token:    cfg.Secrets.TableAPIToken,
		}, policy), noop, nil
	case config.BackendSQLite:
		src, err := records.OpenSQLite(cfg.Records.SQLitePath, cfg.Records.Table, cfg.Records.KeyAttr)
		if err != nil {
			return nil, noop, err
		}
		return src, src.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown record backend %q", cfg.Records.Backend)
}

// ColdStart describes the resources named by cfg for the startup summary.
func ColdStart(name string, cfg config.Config, initStart time.Time) logging.ColdStart {
	stages := []string{"profile"}
	if cfg.Pipeline.EnableComposition {
		stages = append(stages, "composition")
	}
	if cfg.Pipeline.EnableCultural {
		stages = append(stages, "cultural")
	}
	cs := logging.ColdStart{
		Service:       name,
		Bucket:        cfg.Blob.Bucket,
		RecordBackend: cfg.Records.Backend,
		TextModel:     cfg.Models.TextProvider + "/" + cfg.Models.TextModel,
		ImageModel:    cfg.Models.ImageProvider + "/" + cfg.Models.ImageModel,
		Stages:        stages,
		Batch: logging.BatchLimits{
			DefaultLimit: cfg.Batch.DefaultLimit,
			MaxCaseID:    cfg.Batch.MaxCaseID,
			BundleSize:   cfg.Batch.BundleSize,
			Compression:  cfg.Batch.Compression,
		},
		Init: time.Since(initStart),
	}
	if cfg.Records.Backend != config.BackendSQLite {
		cs.RecordTable = cfg.Records.Table
	}
	return cs
}
