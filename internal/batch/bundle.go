package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/blob"
)

// Compression modes for bundle bodies.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// DefaultBundleSize is the record count that triggers a flush.
const DefaultBundleSize = 10

// BundleRef describes one uploaded (or skipped) bundle.
type BundleRef struct {
	Key     string `json:"key"`
	URL     string `json:"url,omitempty"`
	First   int    `json:"firstCaseId"`
	Last    int    `json:"lastCaseId"`
	Count   int    `json:"count"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// bundleDoc is the serialized bundle body.
type bundleDoc struct {
	RunID     string   `json:"runId"`
	Pipeline  string   `json:"pipeline"`
	CreatedAt string   `json:"createdAt"`
	Count     int      `json:"count"`
	Records   []Record `json:"records"`
}

// Bundler holds bundle settings shared across runs.
type Bundler struct {
	store       blob.Store
	layout      blob.Layout
	size        int
	compression string
	encoder     *zstd.Encoder
}

// NewBundler validates the compression mode and prepares an encoder if needed.
func NewBundler(store blob.Store, layout blob.Layout, size int, compression string) (*Bundler, error) {
	if size < 1 {
		size = DefaultBundleSize
	}
	b := &Bundler{store: store, layout: layout, size: size, compression: compression}
	switch compression {
	case "", CompressionNone:
		b.compression = CompressionNone
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		b.encoder = enc
	default:
		return nil, fmt.Errorf("unknown bundle compression %q", compression)
	}
	return b, nil
}

// Start opens an accumulator for one run.
func (b *Bundler) Start(runID, pipeline string, overwrite bool) *Bundle {
	return &Bundle{b: b, runID: runID, pipeline: pipeline, overwrite: overwrite}
}

// Bundle accumulates records for one run.
type Bundle struct {
	b         *Bundler
	runID     string
	pipeline  string
	overwrite bool
	pending   []Record
}

// Add appends rec and flushes when the bundle is full.
func (bu *Bundle) Add(ctx context.Context, rec Record) *BundleRef {
	bu.pending = append(bu.pending, rec)
	if len(bu.pending) < bu.b.size {
		return nil
	}
	return bu.Flush(ctx)
}

// Flush uploads whatever is pending. Nil when nothing is pending.
func (bu *Bundle) Flush(ctx context.Context) *BundleRef {
	if len(bu.pending) == 0 {
		return nil
	}
	recs := bu.pending
	bu.pending = nil

	ref := BundleRef{First: recs[0].CaseID, Last: recs[len(recs)-1].CaseID, Count: len(recs)}
	obj, err := bu.encode(recs)
	if err != nil {
		ref.Error = err.Error()
		log.Error().Err(err).Int("first", ref.First).Int("last", ref.Last).Msg("Failed to encode bundle")
		return &ref
	}
	ref.Key = obj.Key

	res, err := blob.PutIfAbsent(ctx, bu.b.store, obj, bu.overwrite)
	if err != nil {
		ref.Error = err.Error()
		log.Error().Err(err).Str("key", obj.Key).Msg("Failed to upload bundle")
		return &ref
	}
	ref.URL = res.URL
	ref.Skipped = res.Skipped
	log.Info().
		Str("key", obj.Key).
		Int("count", ref.Count).
		Int("bytes", len(obj.Body)).
		Bool("skipped", res.Skipped).
		Msg("Bundle flushed")
	return &ref
}

func (bu *Bundle) encode(recs []Record) (blob.Object, error) {
	body, err := json.MarshalIndent(bundleDoc{
		RunID:     bu.runID,
		Pipeline:  bu.pipeline,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Count:     len(recs),
		Records:   recs,
	}, "", "  ")
	if err != nil {
		return blob.Object{}, fmt.Errorf("marshal bundle: %w", err)
	}
	obj := blob.Object{
		ContentType: "application/json",
		Metadata: map[string]string{
			"run-id":   bu.runID,
			"pipeline": bu.pipeline,
		},
	}
	suffix := ""
	if bu.b.encoder != nil {
		body = bu.b.encoder.EncodeAll(body, make([]byte, 0, len(body)/2))
		obj.ContentEncoding = "zstd"
		suffix = ".zst"
	}
	obj.Key = bu.b.layout.Bundle(recs[0].CaseID, recs[len(recs)-1].CaseID, suffix)
	obj.Body = body
	return obj, nil
}
