package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/quotify/api/internal/quote"
)

// Memory keeps the encoded snapshot in process memory. It goes through the
// same Encode/Decode path as the persistent stores.
type Memory struct {
	mu   sync.Mutex
	data []byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Save(_ context.Context, s quote.State) error {
	data, err := Encode(s, time.Now())
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(_ context.Context, defaults quote.State) (quote.State, bool, error) {
	m.mu.Lock()
	data := m.data
	m.mu.Unlock()
	if data == nil {
		return defaults, false, nil
	}
	s, err := Decode(data, defaults)
	if err != nil {
		return defaults, false, err
	}
	return s, true, nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
	return nil
}

// SetRaw replaces the stored bytes verbatim.
func (m *Memory) SetRaw(data []byte) {
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
}
