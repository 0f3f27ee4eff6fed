package lambdaboot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fpang/synthetic-patients/internal/config"
)

func TestColdStart_FromConfig(t *testing.T) {
	var cfg config.Config
	cfg.Blob.Bucket = "artifacts"
	cfg.Records.Backend = config.BackendDynamo
	cfg.Records.Table = "patients"
	cfg.Models = config.Models{TextProvider: "gemini", TextModel: "flash", ImageProvider: "openai", ImageModel: "gpt-image-1"}
	cfg.Pipeline.EnableCultural = true
	cfg.Batch = config.Batch{DefaultLimit: 5, MaxCaseID: 500, BundleSize: 10, Compression: "zstd"}

	cs := ColdStart("instructions-lambda", cfg, time.Now().Add(-time.Second))

	assert.Equal(t, "instructions-lambda", cs.Service)
	assert.Equal(t, "patients", cs.RecordTable)
	assert.Equal(t, "gemini/flash", cs.TextModel)
	assert.Equal(t, "openai/gpt-image-1", cs.ImageModel)
	assert.Equal(t, []string{"profile", "cultural"}, cs.Stages)
	assert.Equal(t, 10, cs.Batch.BundleSize)
	assert.GreaterOrEqual(t, cs.Init, time.Second)

	cfg.Records.Backend = config.BackendSQLite
	assert.Empty(t, ColdStart("synth-cli", cfg, time.Now()).RecordTable)
}
