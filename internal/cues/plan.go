// Package cues builds the actor instructions for a case: one main instruction
// plus at most two neutral "If ..., then ..." follow-up cues.
//
// Cues go through plan, compose and a deterministic validator. Validation is
// the only hard gate against case facts leaking into the cues; the model is
// asked to repair on failure, and the whole cycle is retried a few times.
package cues

import (
	"errors"
	"strings"

	"github.com/fpang/synthetic-patients/internal/jsonutil"
)

// MaxCues is the most cues a case may carry.
const MaxCues = 2

// The planner is asked for this many candidate items.
const (
	MinCandidates = 4
	MaxCandidates = 6
)

// Item is one planned cue.
type Item struct {
	Domain    string `json:"domain"`
	Trigger   string `json:"trigger"`
	Utterance string `json:"utterance"`
}

// Plan is the planner's candidate list and chosen indices.
type Plan struct {
	Items    []Item `json:"items"`
	Selected []int  `json:"selected"`
}

// ErrEmptyPlan means the planner returned no usable items.
var ErrEmptyPlan = errors.New("cue plan has no items")

type rawPlan struct {
	Items    []Item `json:"items"`
	Selected []any  `json:"selected"`
}

// ParsePlan decodes the planner output. Out-of-range and duplicate indices
// are dropped, at most MaxCues are kept, and an empty selection falls back
// to the first item.
func ParsePlan(raw string) (Plan, error) {
	rp, err := jsonutil.DecodeObject[rawPlan](raw)
	if err != nil {
		return Plan{}, err
	}
	var items []Item
	for _, it := range rp.Items {
		it.Domain = strings.TrimSpace(it.Domain)
		it.Trigger = strings.TrimSpace(it.Trigger)
		it.Utterance = strings.TrimSpace(it.Utterance)
		if it.Trigger == "" && it.Utterance == "" {
			continue
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return Plan{}, ErrEmptyPlan
	}

	seen := make(map[int]bool)
	var selected []int
	for _, v := range rp.Selected {
		f, ok := v.(float64)
		if !ok || f != float64(int(f)) {
			continue
		}
		i := int(f)
		if i < 0 || i >= len(items) || seen[i] {
			continue
		}
		seen[i] = true
		selected = append(selected, i)
		if len(selected) == MaxCues {
			break
		}
	}
	if len(selected) == 0 {
		selected = []int{0}
	}
	return Plan{Items: items, Selected: selected}, nil
}

// CandidatesInRange reports whether the planner returned the requested
// number of candidates. A short or long list is still usable.
func (p Plan) CandidatesInRange() bool {
	return len(p.Items) >= MinCandidates && len(p.Items) <= MaxCandidates
}

// SelectedItems returns the chosen items in selection order.
func (p Plan) SelectedItems() []Item {
	out := make([]Item, 0, len(p.Selected))
	for _, i := range p.Selected {
		out = append(out, p.Items[i])
	}
	return out
}

type rawCues struct {
	Cues []string `json:"cues"`
}

// ParseCues decodes {"cues": [...]} and drops blank entries.
func ParseCues(raw string) ([]string, error) {
	rc, err := jsonutil.DecodeObject[rawCues](raw)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rc.Cues))
	for _, c := range rc.Cues {
		if c = strings.Join(strings.Fields(c), " "); c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}
