// Package markov implements model.Provider with a newline-delimited word Markov chain.
// Corpus text is HTML-escaped on the way in and unescaped on the way out.
package markov

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/senvr/senvr/engine/model"
)

const (
	DefaultStateSize = 2
	DefaultTries     = 10
	DefaultMaxWords  = 60
)

// Provider builds Chain models.
type Provider struct {
	stateSize int
	tries     int
	maxWords  int
}

// Option customizes a Provider.
type Option func(*Provider)

func WithStateSize(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.stateSize = n
		}
	}
}

// WithTries bounds how many walks Sample makes before giving up.
func WithTries(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.tries = n
		}
	}
}

func WithMaxWords(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxWords = n
		}
	}
}

func NewProvider(opts ...Option) *Provider {
	p := &Provider{stateSize: DefaultStateSize, tries: DefaultTries, maxWords: DefaultMaxWords}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var (
	_ model.Provider = (*Provider)(nil)
	_ model.Codec    = (*Provider)(nil)
)

func (p *Provider) Build(corpus string) (model.Model, error) {
	chain := newChain(p.stateSize)
	for _, line := range strings.Split(html.EscapeString(strings.TrimSpace(corpus)), "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		chain.addSentence(words)
	}
	if len(chain.sentences) == 0 {
		return nil, fmt.Errorf("%w: corpus has no sentences", model.ErrBuildFailed)
	}
	return chain, nil
}

func (p *Provider) Combine(a, b model.Model) (model.Model, error) {
	ca, ok := a.(*Chain)
	if !ok {
		return nil, fmt.Errorf("%w: %w: %T", model.ErrCombineFailed, model.ErrUnsupported, a)
	}
	cb, ok := b.(*Chain)
	if !ok {
		return nil, fmt.Errorf("%w: %w: %T", model.ErrCombineFailed, model.ErrUnsupported, b)
	}
	if ca.stateSize != cb.stateSize {
		return nil, fmt.Errorf("%w: state sizes differ (%d, %d)", model.ErrCombineFailed, ca.stateSize, cb.stateSize)
	}
	return ca.merge(cb), nil
}

// Sample walks the chain until it finds a sentence that is not a verbatim training
// line. It reports false when every try repeated the corpus.
func (p *Provider) Sample(m model.Model) (string, bool) {
	chain, ok := m.(*Chain)
	if !ok || chain == nil {
		return "", false
	}
	for range p.tries {
		words := chain.walk(p.maxWords)
		if len(words) == 0 {
			continue
		}
		if _, seen := chain.sentences[hashSentence(words)]; seen {
			continue
		}
		return strings.TrimSpace(html.UnescapeString(strings.Join(words, " "))), true
	}
	return "", false
}

type chainJSON struct {
	StateSize   int                       `json:"state_size"`
	Transitions map[string]map[string]int `json:"transitions"`
	Sentences   []uint64                  `json:"sentences"`
}

func (p *Provider) Marshal(m model.Model) ([]byte, error) {
	chain, ok := m.(*Chain)
	if !ok {
		return nil, fmt.Errorf("%w: %T", model.ErrUnsupported, m)
	}
	doc := chainJSON{
		StateSize:   chain.stateSize,
		Transitions: chain.transitions,
		Sentences:   make([]uint64, 0, len(chain.sentences)),
	}
	for h := range chain.sentences {
		doc.Sentences = append(doc.Sentences, h)
	}
	return json.Marshal(doc)
}

func (p *Provider) Unmarshal(data []byte) (model.Model, error) {
	var doc chainJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("markov: decode chain: %w", err)
	}
	if doc.StateSize < 1 {
		return nil, fmt.Errorf("markov: invalid state size %d", doc.StateSize)
	}
	chain := newChain(doc.StateSize)
	if doc.Transitions != nil {
		chain.transitions = doc.Transitions
	}
	for _, h := range doc.Sentences {
		chain.sentences[h] = struct{}{}
	}
	return chain, nil
}
