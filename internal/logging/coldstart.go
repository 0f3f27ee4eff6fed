package logging

import (
	"os"
	"runtime"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ColdStart is what a generator function reports once its init finishes.
// Secret values never reach it; Secrets maps a label to the SSM path the
// value was read from.
type ColdStart struct {
	Service    string
	CommitHash string
	BuildTime  string

	Bucket        string
	RecordBackend string
	RecordTable   string
	Secrets       map[string]string

	TextModel  string
	ImageModel string
	Stages     []string
	Batch      BatchLimits

	Init time.Duration
}

// BatchLimits are the request defaults a function was booted with.
type BatchLimits struct {
	DefaultLimit int
	MaxCaseID    int
	BundleSize   int
	Compression  string
}

// Log writes the summary as one INFO event.
func (c ColdStart) Log() {
	proc := zerolog.Dict().
		Str("service", c.Service).
		Str("function", os.Getenv("AWS_LAMBDA_FUNCTION_NAME")).
		Str("region", os.Getenv("AWS_REGION")).
		Str("memoryMB", os.Getenv("AWS_LAMBDA_FUNCTION_MEMORY_SIZE")).
		Str("go", runtime.Version()).
		Str("logLevel", zerolog.GlobalLevel().String())
	if c.CommitHash != "" {
		proc = proc.Str("commit", c.CommitHash)
	}
	if c.BuildTime != "" {
		proc = proc.Str("built", c.BuildTime)
	}

	records := zerolog.Dict().Str("backend", c.RecordBackend)
	if c.RecordTable != "" {
		records = records.Str("table", c.RecordTable)
	}

	evt := log.Info().
		Dict("process", proc).
		Str("bucket", c.Bucket).
		Dict("records", records).
		Dict("models", zerolog.Dict().Str("text", c.TextModel).Str("image", c.ImageModel)).
		Strs("stages", c.Stages).
		Dict("batch", zerolog.Dict().
			Int("defaultLimit", c.Batch.DefaultLimit).
			Int("maxCaseId", c.Batch.MaxCaseID).
			Int("bundleSize", c.Batch.BundleSize).
			Str("compression", c.Batch.Compression))

	if len(c.Secrets) > 0 {
		labels := make([]string, 0, len(c.Secrets))
		for label := range c.Secrets {
			labels = append(labels, label)
		}
		slices.Sort(labels)
		ssm := zerolog.Dict()
		for _, label := range labels {
			ssm = ssm.Str(label, c.Secrets[label])
		}
		evt = evt.Dict("ssmParams", ssm)
	}
	if c.Init > 0 {
		evt = evt.Dur("initDuration", c.Init)
	}
	evt.Msg("Cold start complete")
}
