// Package blob stores generated artifacts by path. Writes follow a
// check-then-write discipline: an existing object is left untouched unless
// the caller asks to overwrite it. The check is not atomic; two concurrent
// invocations on the same case may both write.
package blob

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Object is one artifact to persist.
type Object struct {
	Key             string
	Body            []byte
	ContentType     string
	ContentEncoding string
	Metadata        map[string]string
}

// Store is a path-keyed object store.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, obj Object) error
	URL(ctx context.Context, key string) (string, error)
}

// PutResult describes the outcome of PutIfAbsent.
type PutResult struct {
	Key     string `json:"key"`
	URL     string `json:"url"`
	Skipped bool   `json:"skipped,omitempty"`
}

// PutIfAbsent writes obj unless it already exists and overwrite is false.
// The object's URL is returned either way.
func PutIfAbsent(ctx context.Context, s Store, obj Object, overwrite bool) (PutResult, error) {
	res := PutResult{Key: obj.Key}
	if !overwrite {
		exists, err := s.Exists(ctx, obj.Key)
		if err != nil {
			return res, fmt.Errorf("check %s: %w", obj.Key, err)
		}
		if exists {
			res.Skipped = true
			log.Debug().Str("key", obj.Key).Msg("Artifact exists, upload skipped")
		}
	}
	if !res.Skipped {
		if err := s.Put(ctx, obj); err != nil {
			return res, fmt.Errorf("put %s: %w", obj.Key, err)
		}
		log.Info().Str("key", obj.Key).Int("bytes", len(obj.Body)).Msg("Artifact uploaded")
	}

	url, err := s.URL(ctx, obj.Key)
	if err != nil {
		return res, fmt.Errorf("url %s: %w", obj.Key, err)
	}
	res.URL = url
	return res, nil
}
