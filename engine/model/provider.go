// Package model declares the contract the training pipeline uses to build, merge and
// sample statistical text models. Models are opaque and immutable once built.
package model

import "errors"

var (
	// ErrBuildFailed is returned when a corpus cannot produce a model.
	ErrBuildFailed = errors.New("model build failed")
	// ErrCombineFailed is returned when two models cannot be merged.
	ErrCombineFailed = errors.New("model combine failed")
	// ErrUnsupported is returned when a model value was produced by another provider.
	ErrUnsupported = errors.New("unsupported model value")
)

// Model is an opaque, immutable text model.
type Model any

// Provider builds, merges and samples models. Every method may be expensive and is
// called from the worker pool only.
type Provider interface {
	// Build constructs a model from newline separated text.
	Build(corpus string) (Model, error)
	// Combine returns a new model holding the information of both arguments.
	Combine(a, b Model) (Model, error)
	// Sample generates one piece of text. ok is false when the model produced nothing.
	Sample(m Model) (text string, ok bool)
}

// Codec serializes models for export. Providers may optionally implement it.
type Codec interface {
	Marshal(m Model) ([]byte, error)
	Unmarshal(data []byte) (Model, error)
}
