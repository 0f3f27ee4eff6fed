package profile

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/assets"
	"github.com/fpang/synthetic-patients/internal/chat"
	"github.com/fpang/synthetic-patients/internal/jsonutil"
)

// OriginScanner asks for an explicitly stated cultural background. Like the
// decider it is advisory and never fails the case.
type OriginScanner struct {
	model chat.TextModel
}

func NewOriginScanner(model chat.TextModel) *OriginScanner {
	return &OriginScanner{model: model}
}

// Scan returns the stated origin or Unspecified.
func (s *OriginScanner) Scan(ctx context.Context, caseID int, caseText string) string {
	raw, err := s.model.GenerateText(ctx, assets.RenderOriginPrompt(caseText))
	if err != nil {
		log.Warn().Err(err).Int("caseId", caseID).Msg("Origin scan failed")
		return Unspecified
	}
	obj, err := jsonutil.ExtractObject(raw)
	if err != nil {
		return Unspecified
	}
	fields, err := jsonutil.Fields(obj)
	if err != nil {
		return Unspecified
	}
	return NormalizeFreeText(fieldString(fields["origin"]))
}
