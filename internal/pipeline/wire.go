package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/batch"
	"github.com/fpang/synthetic-patients/internal/blob"
	"github.com/fpang/synthetic-patients/internal/chat"
	"github.com/fpang/synthetic-patients/internal/config"
	"github.com/fpang/synthetic-patients/internal/cues"
	"github.com/fpang/synthetic-patients/internal/headshot"
	"github.com/fpang/synthetic-patients/internal/overrides"
	"github.com/fpang/synthetic-patients/internal/profile"
	"github.com/fpang/synthetic-patients/internal/records"
	"github.com/fpang/synthetic-patients/internal/retry"
	"github.com/fpang/synthetic-patients/internal/variety"
)

// Deps are the remote collaborators every pipeline shares.
type Deps struct {
	Source records.Source
	Store  blob.Store
	Models chat.Models
}

// Set holds one batch driver per pipeline.
type Set struct {
	Headshots    *batch.Driver
	Instructions *batch.Driver
	Descriptions *batch.Driver
}

// Driver returns the driver registered under name.
func (s *Set) Driver(name string) (*batch.Driver, error) {
	switch name {
	case NameHeadshots:
		return s.Headshots, nil
	case NameInstructions:
		return s.Instructions, nil
	case NameDescriptions:
		return s.Descriptions, nil
	}
	return nil, fmt.Errorf("unknown pipeline %q", name)
}

// LayoutFrom converts blob settings into a key layout.
func LayoutFrom(c config.Blob) blob.Layout {
	return blob.Layout{
		HeadshotPrefix:    c.HeadshotPrefix,
		ProfilePrefix:     c.ProfilePrefix,
		InstructionPrefix: c.InstructionPrefix,
		DescriptionPrefix: c.DescriptionPrefix,
		PadWidth:          c.PadWidth,
	}
}

// ProviderConfig maps configuration onto chat provider settings.
func ProviderConfig(cfg config.Config) chat.ProviderConfig {
	return chat.ProviderConfig{
		TextProvider:  cfg.Models.TextProvider,
		ImageProvider: cfg.Models.ImageProvider,
		TextModel:     cfg.Models.TextModel,
		ImageModel:    cfg.Models.ImageModel,
		GeminiAPIKey:  cfg.Secrets.GeminiAPIKey,
		OpenAIAPIKey:  cfg.Secrets.OpenAIAPIKey,
		Policy:        retry.NewPolicy(cfg.Retry.Attempts, cfg.Retry.BaseDelay).Named("model"),
	}
}

// NewModels builds the provider clients named by cfg.
func NewModels(ctx context.Context, cfg config.Config) (chat.Models, error) {
	return chat.NewModels(ctx, ProviderConfig(cfg))
}

// Wire builds every pipeline from cfg and the shared collaborators.
func Wire(cfg config.Config, d Deps) (*Set, error) {
	layout := LayoutFrom(cfg.Blob)
	cases := records.NewAggregator(d.Source, records.DefaultFields, cfg.Records.MaxPerCase, cfg.Records.KeyAttr)

	var table *overrides.Table
	var origins *profile.OriginScanner
	if cfg.Pipeline.EnableCultural {
		t, err := overrides.Load(cfg.Pipeline.OverridesPath)
		if err != nil {
			return nil, err
		}
		table = t
		origins = profile.NewOriginScanner(d.Models.Text)
	}
	var decider *profile.Decider
	if cfg.Pipeline.EnableComposition {
		decider = profile.NewDecider(d.Models.Text)
	}

	loop := headshot.NewLoop(
		headshot.NewGenerator(d.Models.Image),
		headshot.NewVerifier(d.Models.Vision),
		headshot.WithAttempts(cfg.Pipeline.GenerationAttempts),
		headshot.WithVerifyDelay(cfg.Pipeline.VerifyDelay),
	)
	headshots := NewHeadshotProcessor(HeadshotDeps{
		Cases:             cases,
		Store:             d.Store,
		Layout:            layout,
		Extractor:         profile.NewExtractor(d.Models.Text, variety.DefaultPalette),
		Decider:           decider,
		Origins:           origins,
		Overrides:         table,
		Loop:              loop,
		ChildAgeThreshold: cfg.Pipeline.ChildAgeThreshold,
	})

	bundler, err := batch.NewBundler(d.Store, layout, cfg.Batch.BundleSize, cfg.Batch.Compression)
	if err != nil {
		return nil, err
	}
	builder := cues.NewBuilder(d.Models.Text, cues.NewValidator(cfg.Pipeline.CueMaxLength), cfg.Pipeline.CueAttempts)
	instructions := NewInstructionsProcessor(cases, builder)

	descriptions := NewDescriptionProcessor(cases, d.Models.Text, d.Store, layout)

	log.Debug().
		Bool("composition", decider != nil).
		Bool("cultural", origins != nil).
		Int("overrides", table.Len()).
		Str("compression", cfg.Batch.Compression).
		Msg("Pipelines wired")

	return &Set{
		Headshots:    batch.NewDriver(headshots),
		Instructions: batch.NewDriver(instructions, batch.WithBundler(bundler)),
		Descriptions: batch.NewDriver(descriptions),
	}, nil
}
