// Package watermark tracks, per channel, the last historical message that was
// processed so crawls can resume where they stopped.
package watermark

import (
	"context"
	"maps"
	"sync"

	"github.com/senvr/senvr/engine/corpus"
)

// Store persists channel watermarks. Advance is only called by the crawler that owns
// the channel.
type Store interface {
	// Get returns the watermark of channel; ok is false when the channel was never
	// crawled.
	Get(ctx context.Context, channel corpus.ChannelID) (id corpus.MessageID, ok bool, err error)
	Advance(ctx context.Context, channel corpus.ChannelID, id corpus.MessageID) error
	All(ctx context.Context) (map[corpus.ChannelID]corpus.MessageID, error)
}

// Memory is a process-local Store.
type Memory struct {
	mu    sync.RWMutex
	marks map[corpus.ChannelID]corpus.MessageID
}

func NewMemory() *Memory {
	return &Memory{marks: make(map[corpus.ChannelID]corpus.MessageID)}
}

// NewMemoryFrom seeds a Memory store, typically from an exported snapshot.
func NewMemoryFrom(marks map[corpus.ChannelID]corpus.MessageID) *Memory {
	m := NewMemory()
	maps.Copy(m.marks, marks)
	return m
}

func (m *Memory) Get(_ context.Context, channel corpus.ChannelID) (corpus.MessageID, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.marks[channel]
	return id, ok, nil
}

func (m *Memory) Advance(_ context.Context, channel corpus.ChannelID, id corpus.MessageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[channel] = id
	return nil
}

func (m *Memory) All(_ context.Context) (map[corpus.ChannelID]corpus.MessageID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.marks), nil
}
