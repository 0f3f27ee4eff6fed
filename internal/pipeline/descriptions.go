package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fpang/synthetic-patients/internal/assets"
	"github.com/fpang/synthetic-patients/internal/batch"
	"github.com/fpang/synthetic-patients/internal/blob"
	"github.com/fpang/synthetic-patients/internal/chat"
)

// DescriptionProcessor writes a short plain-text description per case.
type DescriptionProcessor struct {
	cases  CaseLoader
	model  chat.TextModel
	store  blob.Store
	layout blob.Layout
}

var _ batch.Processor = (*DescriptionProcessor)(nil)

func NewDescriptionProcessor(cases CaseLoader, model chat.TextModel, store blob.Store, layout blob.Layout) *DescriptionProcessor {
	return &DescriptionProcessor{cases: cases, model: model, store: store, layout: layout}
}

func (d *DescriptionProcessor) Name() string { return NameDescriptions }

// DescriptionResult is the per-case payload.
type DescriptionResult struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

func (d *DescriptionProcessor) Process(ctx context.Context, caseID int, p batch.Params) (batch.Outcome, error) {
	ct, done, err := loadCase(ctx, d.cases, caseID, p)
	if err != nil || done != nil {
		return deref(done), err
	}

	key := d.layout.Description(caseID)
	if !p.Overwrite {
		exists, err := d.store.Exists(ctx, key)
		if err != nil {
			return batch.Outcome{}, fmt.Errorf("check existing description: %w", err)
		}
		if exists {
			url, err := d.store.URL(ctx, key)
			if err != nil {
				return batch.Outcome{}, fmt.Errorf("url %s: %w", key, err)
			}
			return batch.Outcome{Status: batch.StatusExists, Result: DescriptionResult{URL: url}}, nil
		}
	}

	text, err := d.model.GenerateText(ctx, assets.RenderDescriptionPrompt(ct.Text))
	if err != nil {
		return batch.Outcome{}, fmt.Errorf("description: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return batch.Outcome{}, fmt.Errorf("description: %w", chat.ErrEmptyResponse)
	}

	res, err := blob.PutIfAbsent(ctx, d.store, blob.Object{
		Key:         key,
		Body:        []byte(text + "\n"),
		ContentType: "text/plain; charset=utf-8",
		Metadata:    map[string]string{"case-id": strconv.Itoa(caseID)},
	}, p.Overwrite)
	if err != nil {
		return batch.Outcome{}, fmt.Errorf("upload description: %w", err)
	}
	out := DescriptionResult{URL: res.URL, Description: text}
	return batch.Outcome{Status: batch.StatusOK, Result: out, Debug: out}, nil
}
