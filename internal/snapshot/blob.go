package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quotify/api/internal/quote"
	"github.com/quotify/api/internal/storage"
)

// BlobStore keeps the snapshot as a JSON object in a storage.Blob (local
// directory or S3 bucket).
type BlobStore struct {
	blob storage.Blob
	key  string
	now  func() time.Time
}

// NewBlobStore creates a snapshot store over blob.
func NewBlobStore(blob storage.Blob) *BlobStore {
	return &BlobStore{blob: blob, key: Key + ".json", now: time.Now}
}

func (b *BlobStore) Save(ctx context.Context, s quote.State) error {
	data, err := Encode(s, b.now())
	if err != nil {
		return err
	}
	if err := b.blob.Put(ctx, b.key, data, "application/json"); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (b *BlobStore) Load(ctx context.Context, defaults quote.State) (quote.State, bool, error) {
	data, err := b.blob.Get(ctx, b.key)
	if errors.Is(err, storage.ErrNotFound) {
		return defaults, false, nil
	}
	if err != nil {
		return defaults, false, fmt.Errorf("loading snapshot: %w", err)
	}
	s, err := Decode(data, defaults)
	if err != nil {
		return defaults, false, err
	}
	return s, true, nil
}

func (b *BlobStore) Clear(ctx context.Context) error {
	if err := b.blob.Delete(ctx, b.key); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	return nil
}
