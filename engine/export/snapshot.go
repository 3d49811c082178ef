// Package export produces point-in-time snapshots of a scope: its model, the crawl
// watermarks and how many units it has seen.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/model"
	"github.com/senvr/senvr/engine/trainer"
	"github.com/senvr/senvr/engine/watermark"
	"github.com/tidwall/pretty"
)

// ErrScopeNotEmpty is returned when restoring into a scope that already has a model.
var ErrScopeNotEmpty = errors.New("scope already has a model")

// Snapshot is the export format. Model is null when the scope had no model yet.
type Snapshot struct {
	Scope      string                                `json:"scope"`
	Watermarks map[corpus.ChannelID]corpus.MessageID `json:"watermarks"`
	Model      json.RawMessage                       `json:"model"`
	Units      uint64                                `json:"units"`
	Generation uint64                                `json:"generation"`
	TakenAt    time.Time                             `json:"taken_at"`
}

// Take reads the live model of scope without blocking training and serializes it.
func Take(
	ctx context.Context,
	scope *trainer.Scope,
	marks watermark.Store,
	codec model.Codec,
) (*Snapshot, error) {
	all, err := marks.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: read watermarks: %w", err)
	}
	snap := &Snapshot{
		Scope:      scope.Name,
		Watermarks: all,
		Model:      json.RawMessage("null"),
		Units:      scope.Coordinator.Counters().Total,
		TakenAt:    time.Now().UTC(),
	}
	m, gen, ok := scope.Store.Current()
	if !ok {
		return snap, nil
	}
	data, err := codec.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("export: marshal model: %w", err)
	}
	snap.Model = data
	snap.Generation = gen
	return snap, nil
}

// HasModel reports whether the snapshot carries a model.
func (s *Snapshot) HasModel() bool {
	trimmed := bytes.TrimSpace(s.Model)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Restore installs the snapshot model into an empty scope.
func Restore(snap *Snapshot, scope *trainer.Scope, codec model.Codec) error {
	if !snap.HasModel() {
		return nil
	}
	m, err := codec.Unmarshal(snap.Model)
	if err != nil {
		return fmt.Errorf("export: unmarshal model: %w", err)
	}
	if !scope.Store.CompareAndSwap(0, m) {
		return fmt.Errorf("export: restore into %s: %w", scope.Name, ErrScopeNotEmpty)
	}
	return nil
}

// Write encodes snap as JSON, indented when indent is set.
func Write(w io.Writer, snap *Snapshot, indent bool) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("export: encode snapshot: %w", err)
	}
	if indent {
		data = pretty.Pretty(data)
	} else {
		data = append(data, '\n')
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("export: write snapshot: %w", err)
	}
	return nil
}

// Read decodes a snapshot written by Write.
func Read(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("export: decode snapshot: %w", err)
	}
	return &snap, nil
}
