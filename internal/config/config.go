// Package config builds the process configuration once at startup from
// the environment, optionally seeded from .env files. Nothing else reads
// the environment afterwards.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Record backends.
const (
	BackendDynamo   = "dynamo"
	BackendTableAPI = "tableapi"
	BackendSQLite   = "sqlite"
)

// Config is the full process configuration.
type Config struct {
	Records  Records
	Blob     Blob
	Models   Models
	Retry    Retry
	Pipeline Pipeline
	Batch    Batch
	Auth     Auth
	Secrets  Secrets
	Log      Log
}

type Records struct {
	Backend    string
	Table      string
	KeyAttr    string
	MaxPerCase int
	TableAPI   string
	BaseID     string
	SQLitePath string
}

type Blob struct {
	Bucket            string
	PublicBaseURL     string
	PresignExpiry     time.Duration
	HeadshotPrefix    string
	ProfilePrefix     string
	InstructionPrefix string
	DescriptionPrefix string
	PadWidth          int
}

type Models struct {
	TextProvider  string
	ImageProvider string
	TextModel     string
	ImageModel    string
}

type Retry struct {
	Attempts  int
	BaseDelay time.Duration
}

type Pipeline struct {
	GenerationAttempts int
	VerifyDelay        time.Duration
	CueAttempts        int
	CueMaxLength       int
	ChildAgeThreshold  float64
	EnableComposition  bool
	EnableCultural     bool
	OverridesPath      string
}

type Batch struct {
	DefaultLimit int
	MaxCaseID    int
	BundleSize   int
	Compression  string
}

type Auth struct {
	Header string
}

// Secrets hold credentials. Empty values are fetched from the SSM
// parameter named alongside them by the Lambda bootstrap.
type Secrets struct {
	GeminiAPIKey  string
	OpenAIAPIKey  string
	SharedSecret  string
	TableAPIToken string

	GeminiKeyParam     string
	OpenAIKeyParam     string
	SharedSecretParam  string
	TableAPITokenParam string
}

type Log struct {
	Level  string
	Format string
}

// Load reads .env files (all optional) and then the environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Config{
		Records: Records{
			Backend:    strings.ToLower(getEnv("RECORD_BACKEND", BackendDynamo)),
			Table:      getEnv("RECORD_TABLE", "patients"),
			KeyAttr:    getEnv("RECORD_KEY", "caseId"),
			MaxPerCase: getEnvInt("MAX_RECORDS_PER_CASE", 100),
			TableAPI:   getEnv("TABLE_API_URL", "https://api.airtable.com/v0"),
			BaseID:     getEnv("TABLE_API_BASE_ID", ""),
			SQLitePath: getEnv("SQLITE_PATH", ""),
		},
		Blob: Blob{
			Bucket:            getEnv("BUCKET_NAME", ""),
			PublicBaseURL:     getEnv("PUBLIC_BASE_URL", ""),
			PresignExpiry:     getEnvDuration("PRESIGN_EXPIRY", 24*time.Hour),
			HeadshotPrefix:    getEnv("HEADSHOT_PREFIX", "headshots"),
			ProfilePrefix:     getEnv("PROFILE_PREFIX", "profiles"),
			InstructionPrefix: getEnv("INSTRUCTION_PREFIX", "instructions"),
			DescriptionPrefix: getEnv("DESCRIPTION_PREFIX", "descriptions"),
			PadWidth:          getEnvInt("PAD_WIDTH", 4),
		},
		Models: Models{
			TextProvider:  strings.ToLower(getEnv("TEXT_PROVIDER", "gemini")),
			ImageProvider: strings.ToLower(getEnv("IMAGE_PROVIDER", "gemini")),
			TextModel:     getEnv("TEXT_MODEL", ""),
			ImageModel:    getEnv("IMAGE_MODEL", ""),
		},
		Retry: Retry{
			Attempts:  getEnvInt("RETRY_ATTEMPTS", 3),
			BaseDelay: getEnvDuration("RETRY_BASE_DELAY", time.Second),
		},
		Pipeline: Pipeline{
			GenerationAttempts: getEnvInt("GENERATION_ATTEMPTS", 3),
			VerifyDelay:        getEnvDuration("VERIFY_DELAY", 500*time.Millisecond),
			CueAttempts:        getEnvInt("CUE_ATTEMPTS", 3),
			CueMaxLength:       getEnvInt("CUE_MAX_LENGTH", 220),
			ChildAgeThreshold:  getEnvFloat("CHILD_AGE_THRESHOLD", 16),
			EnableComposition:  getEnvBool("ENABLE_COMPOSITION", true),
			EnableCultural:     getEnvBool("ENABLE_CULTURAL", true),
			OverridesPath:      getEnv("OVERRIDES_PATH", ""),
		},
		Batch: Batch{
			DefaultLimit: getEnvInt("DEFAULT_LIMIT", 5),
			MaxCaseID:    getEnvInt("MAX_CASE_ID", 500),
			BundleSize:   getEnvInt("BUNDLE_SIZE", 10),
			Compression:  strings.ToLower(getEnv("BUNDLE_COMPRESSION", "none")),
		},
		Auth: Auth{
			Header: strings.ToLower(getEnv("AUTH_HEADER", "x-api-secret")),
		},
		Secrets: Secrets{
			GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
			OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
			SharedSecret:       getEnv("SHARED_SECRET", ""),
			TableAPIToken:      getEnv("TABLE_API_TOKEN", ""),
			GeminiKeyParam:     getEnv("SSM_GEMINI_KEY_PARAM", "/synthetic-patients/prod/gemini-api-key"),
			OpenAIKeyParam:     getEnv("SSM_OPENAI_KEY_PARAM", "/synthetic-patients/prod/openai-api-key"),
			SharedSecretParam:  getEnv("SSM_SHARED_SECRET_PARAM", "/synthetic-patients/prod/shared-secret"),
			TableAPITokenParam: getEnv("SSM_TABLE_API_TOKEN_PARAM", "/synthetic-patients/prod/table-api-token"),
		},
		Log: Log{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "")),
		},
	}
	return cfg, nil
}

// Validate reports every problem that does not depend on where the process
// runs.
func (c Config) Validate() error {
	var errs []error
	switch c.Records.Backend {
	case BackendDynamo, BackendTableAPI:
	case BackendSQLite:
		if c.Records.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RECORD_BACKEND %q", c.Records.Backend))
	}
	if c.Records.Backend == BackendTableAPI && c.Records.BaseID == "" {
		errs = append(errs, errors.New("TABLE_API_BASE_ID is required for the tableapi backend"))
	}
	if c.Records.Table == "" {
		errs = append(errs, errors.New("RECORD_TABLE is empty"))
	}
	for name, p := range map[string]string{"TEXT_PROVIDER": c.Models.TextProvider, "IMAGE_PROVIDER": c.Models.ImageProvider} {
		if p != "gemini" && p != "openai" {
			errs = append(errs, fmt.Errorf("%s must be gemini or openai, got %q", name, p))
		}
	}
	for name, n := range map[string]int{
		"RETRY_ATTEMPTS":       c.Retry.Attempts,
		"GENERATION_ATTEMPTS":  c.Pipeline.GenerationAttempts,
		"CUE_ATTEMPTS":         c.Pipeline.CueAttempts,
		"MAX_RECORDS_PER_CASE": c.Records.MaxPerCase,
		"DEFAULT_LIMIT":        c.Batch.DefaultLimit,
		"MAX_CASE_ID":          c.Batch.MaxCaseID,
		"BUNDLE_SIZE":          c.Batch.BundleSize,
	} {
		if n < 1 {
			errs = append(errs, fmt.Errorf("%s must be >= 1, got %d", name, n))
		}
	}
	if c.Batch.Compression != "none" && c.Batch.Compression != "zstd" {
		errs = append(errs, fmt.Errorf("BUNDLE_COMPRESSION must be none or zstd, got %q", c.Batch.Compression))
	}
	return errors.Join(errs...)
}

// ValidateLambda adds the checks that only apply to deployed functions.
// Call it after secrets are resolved.
func (c Config) ValidateLambda() error {
	errs := []error{c.Validate()}
	if c.Blob.Bucket == "" {
		errs = append(errs, errors.New("BUCKET_NAME is required"))
	}
	if c.Records.Backend == BackendSQLite {
		errs = append(errs, errors.New("the sqlite backend is only available to the CLI"))
	}
	if c.Secrets.SharedSecret == "" {
		errs = append(errs, errors.New("shared secret is empty"))
	}
	return errors.Join(errs...)
}

// NeedsGemini reports whether any role uses the Gemini provider.
func (m Models) NeedsGemini() bool { return m.TextProvider == "gemini" || m.ImageProvider == "gemini" }

// NeedsOpenAI reports whether any role uses the OpenAI provider.
func (m Models) NeedsOpenAI() bool { return m.TextProvider == "openai" || m.ImageProvider == "openai" }

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvDuration accepts Go durations ("750ms") or bare milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
