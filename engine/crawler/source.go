// Package crawler replays channel history into the training pipeline with bounded
// concurrency and resumable per-channel watermarks.
package crawler

import (
	"context"
	"errors"
	"iter"

	"github.com/senvr/senvr/engine/corpus"
)

// ErrForbidden is returned by a Source when a channel cannot be read.
var ErrForbidden = errors.New("channel access forbidden")

// Message is one historical message as delivered by a Source.
type Message struct {
	ID      corpus.MessageID
	Channel corpus.ChannelID
	Author  corpus.AuthorID
	Content string
	Bot     bool
}

// Unit converts the message into a training unit.
func (m Message) Unit() corpus.TextUnit {
	return corpus.TextUnit{ID: m.ID, Channel: m.Channel, Author: m.Author, Content: m.Content}
}

// Source is the chat platform's history capability.
type Source interface {
	// Channels lists the channels to crawl.
	Channels(ctx context.Context) ([]corpus.ChannelID, error)
	// FetchHistory yields messages oldest first, starting after the given id or at the
	// beginning when after is nil. An ErrForbidden error ends the sequence.
	FetchHistory(ctx context.Context, channel corpus.ChannelID, after *corpus.MessageID) iter.Seq2[Message, error]
	// IsBotAuthor reports whether the message was written by an automated account.
	IsBotAuthor(msg Message) bool
}
