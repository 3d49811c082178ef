package jsonexport

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/crawler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const generalExport = `{
  "guild": {"id": "1", "name": "test"},
  "channel": {"id": "100", "name": "general"},
  "messages": [
    {"id": "1001", "type": "Default", "content": "hello there", "author": {"id": "7", "isBot": false}},
    {"id": "1002", "type": "ChannelPinnedMessage", "content": "", "author": {"id": "7", "isBot": false}},
    {"id": "1003", "type": "Default", "content": "beep", "author": {"id": "9", "isBot": true}},
    {"id": "1004", "type": "Reply", "content": "general kenobi", "author": {"id": "8", "isBot": false}}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func collect(t *testing.T, s *Source, ch corpus.ChannelID, after *corpus.MessageID) ([]crawler.Message, error) {
	t.Helper()
	var msgs []crawler.Message
	for msg, err := range s.FetchHistory(t.Context(), ch, after) {
		if err != nil {
			return msgs, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func TestSource(t *testing.T) {
	t.Run("Should index channels by their export id", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "general.json", generalExport)
		s, err := Open(dir)
		require.NoError(t, err)
		channels, err := s.Channels(t.Context())
		require.NoError(t, err)
		assert.Equal(t, []corpus.ChannelID{"100"}, channels)
	})

	t.Run("Should yield content messages in order", func(t *testing.T) {
		dir := t.TempDir()
		s, err := Open(writeFile(t, dir, "general.json", generalExport))
		require.NoError(t, err)
		msgs, err := collect(t, s, "100", nil)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, corpus.MessageID("1001"), msgs[0].ID)
		assert.Equal(t, corpus.AuthorID("7"), msgs[0].Author)
		assert.Equal(t, "hello there", msgs[0].Content)
		assert.True(t, s.IsBotAuthor(msgs[1]))
		assert.Equal(t, "general kenobi", msgs[2].Content)
	})

	t.Run("Should resume after a watermark", func(t *testing.T) {
		dir := t.TempDir()
		s, err := Open(writeFile(t, dir, "general.json", generalExport))
		require.NoError(t, err)
		after := corpus.MessageID("1003")
		msgs, err := collect(t, s, "100", &after)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, corpus.MessageID("1004"), msgs[0].ID)
	})

	t.Run("Should resume by position for non numeric ids", func(t *testing.T) {
		dir := t.TempDir()
		s, err := Open(writeFile(t, dir, "c.json", `{"channel":{"id":"c"},"messages":[
			{"id":"b","content":"one","author":{"id":"1"}},
			{"id":"a","content":"two","author":{"id":"1"}}]}`))
		require.NoError(t, err)
		after := corpus.MessageID("b")
		msgs, err := collect(t, s, "c", &after)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "two", msgs[0].Content)
	})

	t.Run("Should report unreadable files as forbidden", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Geteuid() == 0 {
			t.Skip("file permissions are not enforced")
		}
		dir := t.TempDir()
		path := writeFile(t, dir, "secret.json", generalExport)
		require.NoError(t, os.Chmod(path, 0o000))
		s, err := Open(path)
		require.NoError(t, err)
		_, err = collect(t, s, "secret", nil)
		assert.ErrorIs(t, err, crawler.ErrForbidden)
	})

	t.Run("Should stop when the context ends", func(t *testing.T) {
		dir := t.TempDir()
		s, err := Open(writeFile(t, dir, "general.json", generalExport))
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		count := 0
		for range s.FetchHistory(ctx, "100", nil) {
			count++
		}
		assert.Zero(t, count)
	})
}
