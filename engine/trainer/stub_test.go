package trainer

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/senvr/senvr/engine/model"
)

// textProvider builds a model equal to its corpus and combines by concatenation.
type textProvider struct {
	buildDelay time.Duration
	builds     atomic.Int64
	combines   atomic.Int64
}

func (p *textProvider) Build(corpus string) (model.Model, error) {
	p.builds.Add(1)
	if p.buildDelay > 0 {
		time.Sleep(p.buildDelay)
	}
	if strings.Contains(corpus, "poison") {
		return nil, fmt.Errorf("%w: poison corpus", model.ErrBuildFailed)
	}
	return corpus, nil
}

func (p *textProvider) Combine(a, b model.Model) (model.Model, error) {
	p.combines.Add(1)
	return a.(string) + "\n" + b.(string), nil
}

func (p *textProvider) Sample(m model.Model) (string, bool) {
	s, ok := m.(string)
	return s, ok && s != ""
}
