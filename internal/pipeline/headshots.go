package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/batch"
	"github.com/fpang/synthetic-patients/internal/blob"
	"github.com/fpang/synthetic-patients/internal/headshot"
	"github.com/fpang/synthetic-patients/internal/metrics"
	"github.com/fpang/synthetic-patients/internal/overrides"
	"github.com/fpang/synthetic-patients/internal/profile"
	"github.com/fpang/synthetic-patients/internal/variety"
)

// HeadshotDeps are the collaborators of the headshot pipeline. Decider and
// Origins are optional stages; nil disables them.
type HeadshotDeps struct {
	Cases     CaseLoader
	Store     blob.Store
	Layout    blob.Layout
	Extractor *profile.Extractor
	Decider   *profile.Decider
	Origins   *profile.OriginScanner
	Overrides *overrides.Table
	Loop      *headshot.Loop

	ChildAgeThreshold float64
}

// HeadshotProcessor generates one verified headshot per case.
type HeadshotProcessor struct {
	d HeadshotDeps
}

var _ batch.Processor = (*HeadshotProcessor)(nil)

func NewHeadshotProcessor(d HeadshotDeps) *HeadshotProcessor {
	if d.ChildAgeThreshold <= 0 {
		d.ChildAgeThreshold = 16
	}
	return &HeadshotProcessor{d: d}
}

func (h *HeadshotProcessor) Name() string { return NameHeadshots }

// HeadshotResult is the per-case payload for ok and exists records.
type HeadshotResult struct {
	ImageURL        string              `json:"imageUrl"`
	ProfileURL      string              `json:"profileUrl,omitempty"`
	Attempts        int                 `json:"attempts,omitempty"`
	Accepted        bool                `json:"accepted,omitempty"`
	Checks          *headshot.Checks    `json:"checks,omitempty"`
	FailedChecks    []string            `json:"failedChecks,omitempty"`
	GenerationError string              `json:"generationError,omitempty"`
	Composition     profile.Composition `json:"composition,omitempty"`
}

// ProfileDoc is stored next to each image.
type ProfileDoc struct {
	CaseID           int               `json:"caseId"`
	GeneratedAt      string            `json:"generatedAt"`
	ImageKey         string            `json:"imageKey"`
	Profile          *profile.Profile  `json:"profile"`
	Decision         profile.Decision  `json:"decision"`
	Variation        variety.Selection `json:"variation"`
	CulturalGuidance string            `json:"culturalGuidance,omitempty"`
	Prompt           string            `json:"prompt"`
	Generation       headshot.Result   `json:"generation"`
}

// HeadshotDebug is returned in debug mode.
type HeadshotDebug struct {
	CaseText string      `json:"caseText"`
	Doc      *ProfileDoc `json:"profileDoc"`
}

func (h *HeadshotProcessor) Process(ctx context.Context, caseID int, p batch.Params) (batch.Outcome, error) {
	ct, done, err := loadCase(ctx, h.d.Cases, caseID, p)
	if err != nil || done != nil {
		return deref(done), err
	}

	imageKey := h.d.Layout.Headshot(caseID, headshot.Extension("image/png"))
	profileKey := h.d.Layout.Profile(caseID)
	if !p.Overwrite {
		exists, err := h.d.Store.Exists(ctx, imageKey)
		if err != nil {
			return batch.Outcome{}, fmt.Errorf("check existing headshot: %w", err)
		}
		if exists {
			res, err := h.existing(ctx, imageKey, profileKey)
			if err != nil {
				return batch.Outcome{}, err
			}
			return batch.Outcome{Status: batch.StatusExists, Result: res}, nil
		}
	}

	prof, sel, err := h.d.Extractor.Extract(ctx, caseID, ct.Text)
	if err != nil {
		return batch.Outcome{}, err
	}

	decision := profile.SingleDecision()
	if h.d.Decider != nil {
		decision = h.d.Decider.Decide(ctx, caseID, ct.Text)
	}
	decision = profile.ApplyAgeOverride(decision, prof, h.d.ChildAgeThreshold)

	if h.d.Origins != nil {
		if origin := h.d.Origins.Scan(ctx, caseID, ct.Text); origin != profile.Unspecified {
			prof.CulturalContext = origin
		}
	}
	guidance, _ := h.d.Overrides.Lookup(caseID, prof.CulturalContext)

	prompt := headshot.ComposePrompt(headshot.PromptInput{
		Profile:          prof,
		Decision:         decision,
		Variation:        sel,
		CulturalGuidance: guidance,
		ChildThreshold:   h.d.ChildAgeThreshold,
	})

	gen, err := h.d.Loop.Run(ctx, headshot.Request{
		CaseID:     caseID,
		Prompt:     prompt,
		Profile:    prof,
		Decision:   decision,
		ChildAdult: prof.IsChild(h.d.ChildAgeThreshold) && decision.Composition == profile.Pair,
	})
	if err != nil {
		return batch.Outcome{}, err
	}

	img, err := headshot.ToPNG(gen.Image)
	if err != nil {
		return batch.Outcome{}, err
	}

	meta := map[string]string{
		"case-id":  strconv.Itoa(caseID),
		"attempts": strconv.Itoa(gen.Attempts),
		"accepted": strconv.FormatBool(gen.Accepted),
	}
	imgRes, err := blob.PutIfAbsent(ctx, h.d.Store, blob.Object{
		Key:         imageKey,
		Body:        img.Data,
		ContentType: img.MIMEType,
		Metadata:    meta,
	}, p.Overwrite)
	if err != nil {
		return batch.Outcome{}, fmt.Errorf("upload headshot: %w", err)
	}

	doc := &ProfileDoc{
		CaseID:           caseID,
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
		ImageKey:         imageKey,
		Profile:          prof,
		Decision:         decision,
		Variation:        sel,
		CulturalGuidance: guidance,
		Prompt:           prompt,
		Generation:       gen,
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return batch.Outcome{}, fmt.Errorf("marshal profile doc: %w", err)
	}
	docRes, err := blob.PutIfAbsent(ctx, h.d.Store, blob.Object{
		Key:         profileKey,
		Body:        body,
		ContentType: "application/json",
		Metadata:    meta,
	}, p.Overwrite)
	if err != nil {
		return batch.Outcome{}, fmt.Errorf("upload profile doc: %w", err)
	}

	m := metrics.New(metrics.Namespace).
		Dimension("Pipeline", NameHeadshots).
		Metric("GenerationAttempts", float64(gen.Attempts), metrics.UnitCount)
	if !gen.Accepted {
		m.Count("VerificationFailures")
	}
	m.Flush()

	if !gen.Accepted {
		log.Warn().Int("caseId", caseID).Strs("failed", gen.Checks.Failed()).Msg("Headshot stored without passing every check")
	}

	checks := gen.Checks
	res := HeadshotResult{
		ImageURL:        imgRes.URL,
		ProfileURL:      docRes.URL,
		Attempts:        gen.Attempts,
		Accepted:        gen.Accepted,
		Checks:          &checks,
		FailedChecks:    gen.Checks.Failed(),
		GenerationError: gen.GenerationError,
		Composition:     decision.Composition,
	}
	return batch.Outcome{
		Status: batch.StatusOK,
		Result: res,
		Debug:  HeadshotDebug{CaseText: ct.Text, Doc: doc},
	}, nil
}

func (h *HeadshotProcessor) existing(ctx context.Context, imageKey, profileKey string) (HeadshotResult, error) {
	imageURL, err := h.d.Store.URL(ctx, imageKey)
	if err != nil {
		return HeadshotResult{}, fmt.Errorf("url %s: %w", imageKey, err)
	}
	res := HeadshotResult{ImageURL: imageURL}
	if ok, err := h.d.Store.Exists(ctx, profileKey); err == nil && ok {
		if u, err := h.d.Store.URL(ctx, profileKey); err == nil {
			res.ProfileURL = u
		}
	}
	return res, nil
}

func deref(o *batch.Outcome) batch.Outcome {
	if o == nil {
		return batch.Outcome{}
	}
	return *o
}
