package crawler

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/model"
	"github.com/senvr/senvr/engine/trainer"
	"github.com/senvr/senvr/engine/worker"
)

type fakeSource struct {
	history  map[corpus.ChannelID][]Message
	order    []corpus.ChannelID
	forbidAt map[corpus.ChannelID]int
	delay    time.Duration
	onYield  func(channel corpus.ChannelID, index int)

	mu        sync.Mutex
	active    int
	maxActive int
	fetches   atomic.Int64
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		history:  make(map[corpus.ChannelID][]Message),
		forbidAt: make(map[corpus.ChannelID]int),
	}
}

// add appends n messages with ids <channel>-1..n and contents "<channel> word i".
func (s *fakeSource) add(channel corpus.ChannelID, author corpus.AuthorID, n int) {
	if _, ok := s.history[channel]; !ok {
		s.order = append(s.order, channel)
	}
	for i := 1; i <= n; i++ {
		s.history[channel] = append(s.history[channel], Message{
			ID:      corpus.MessageID(fmt.Sprintf("%s-%d", channel, i)),
			Channel: channel,
			Author:  author,
			Content: fmt.Sprintf("%s word %d", channel, i),
		})
	}
}

func (s *fakeSource) Channels(context.Context) ([]corpus.ChannelID, error) {
	return s.order, nil
}

func (s *fakeSource) FetchHistory(
	ctx context.Context,
	channel corpus.ChannelID,
	after *corpus.MessageID,
) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		s.fetches.Add(1)
		s.mu.Lock()
		s.active++
		s.maxActive = max(s.maxActive, s.active)
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.active--
			s.mu.Unlock()
		}()
		msgs := s.history[channel]
		start := 0
		if after != nil {
			for i, m := range msgs {
				if m.ID == *after {
					start = i + 1
				}
			}
		}
		for i := start; i < len(msgs); i++ {
			if n, ok := s.forbidAt[channel]; ok && i >= n {
				yield(Message{}, fmt.Errorf("%w: %s", ErrForbidden, channel))
				return
			}
			if s.delay > 0 {
				select {
				case <-time.After(s.delay):
				case <-ctx.Done():
				}
			}
			if !yield(msgs[i], nil) {
				return
			}
			if s.onYield != nil {
				s.onYield(channel, i)
			}
		}
	}
}

func (s *fakeSource) IsBotAuthor(msg Message) bool {
	return msg.Author == "bot"
}

func (s *fakeSource) peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxActive
}

// joinProvider builds a model equal to its corpus and combines by concatenation.
type joinProvider struct{}

func (joinProvider) Build(corpus string) (model.Model, error) { return corpus, nil }

func (joinProvider) Combine(a, b model.Model) (model.Model, error) {
	return a.(string) + "\n" + b.(string), nil
}

func (joinProvider) Sample(m model.Model) (string, bool) { return m.(string), true }

func newIngestor(mode trainer.Mode, size int) *trainer.Ingestor {
	registry := trainer.NewRegistry(trainer.RegistryOptions{
		Mode:       mode,
		SampleSize: size,
		Provider:   joinProvider{},
		Pool:       worker.NewPool(2),
	})
	return trainer.NewIngestor(registry, corpus.Filter{})
}
