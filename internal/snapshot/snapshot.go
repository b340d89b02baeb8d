// Package snapshot persists the editable quote between sessions under a
// single well-known key. Loading merges the stored document over explicit
// defaults, so fields added after a snapshot was written keep their default
// values instead of being zeroed.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quotify/api/internal/quote"
)

// Key is the name every backend stores the snapshot under.
const Key = "quotify_state"

// Version is written into every envelope.
const Version = 1

// ErrCorrupt is returned when stored bytes cannot be decoded into a quote.
var ErrCorrupt = errors.New("snapshot is corrupt")

// Store saves and restores the quote state.
type Store interface {
	// Save replaces the stored snapshot.
	Save(ctx context.Context, s quote.State) error

	// Load merges the stored snapshot over defaults. It reports false when
	// nothing was stored, and wraps ErrCorrupt when the stored bytes are
	// unusable.
	Load(ctx context.Context, defaults quote.State) (quote.State, bool, error)

	// Clear removes the stored snapshot.
	Clear(ctx context.Context) error
}

type envelope struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"savedAt"`
	State   json.RawMessage `json:"state"`
}

// Encode wraps s in a versioned envelope.
func Encode(s quote.State, now time.Time) ([]byte, error) {
	state, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot state: %w", err)
	}
	data, err := json.Marshal(envelope{Version: Version, SavedAt: now.UTC(), State: state})
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// Decode merges data over defaults. Both the versioned envelope and a bare
// state object (as written by older clients) are accepted.
func Decode(data []byte, defaults quote.State) (quote.State, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return quote.State{}, ErrCorrupt
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return quote.State{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	raw := data
	if env.Version > 0 {
		if len(env.State) == 0 {
			return quote.State{}, fmt.Errorf("%w: envelope without state", ErrCorrupt)
		}
		raw = env.State
	}

	// Decoding onto a copy of the defaults is the merge: keys absent from
	// the snapshot leave the default untouched.
	out := defaults.Clone()
	if err := json.Unmarshal(raw, &out); err != nil {
		return quote.State{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	normalize(&out)
	return out, nil
}

// normalize repairs what a merge cannot: rows without an id get one.
func normalize(s *quote.State) {
	for i := range s.Items {
		if s.Items[i].ID == "" {
			s.Items[i].ID = quote.NewItemID()
		}
	}
}
