// Package jsonexport reads channel history from chat export files, one JSON document
// per channel:
//
//	{"channel": {"id": "..."}, "messages": [{"id": "...", "type": "Default",
//	 "content": "...", "author": {"id": "...", "isBot": false}}]}
package jsonexport

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/crawler"
	"github.com/tidwall/gjson"
)

var contentTypes = map[string]bool{"": true, "Default": true, "Reply": true}

// Source serves history from export files. It implements crawler.Source.
type Source struct {
	files map[corpus.ChannelID]string
	order []corpus.ChannelID
}

var _ crawler.Source = (*Source)(nil)

// Open indexes the given files and directories. Directories contribute every *.json
// file they contain. A file that cannot be read is indexed under its base name and
// reports crawler.ErrForbidden when fetched.
func Open(paths ...string) (*Source, error) {
	s := &Source{files: make(map[corpus.ChannelID]string)}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("jsonexport: stat %s: %w", path, err)
		}
		if !info.IsDir() {
			s.index(path)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(path, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("jsonexport: list %s: %w", path, err)
		}
		for _, match := range matches {
			s.index(match)
		}
	}
	return s, nil
}

func (s *Source) index(path string) {
	id := corpus.ChannelID(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if data, err := os.ReadFile(path); err == nil {
		if v := gjson.GetBytes(data, "channel.id"); v.Exists() && v.String() != "" {
			id = corpus.ChannelID(v.String())
		}
	}
	if _, ok := s.files[id]; !ok {
		s.order = append(s.order, id)
	}
	s.files[id] = path
}

func (s *Source) Channels(_ context.Context) ([]corpus.ChannelID, error) {
	return append([]corpus.ChannelID(nil), s.order...), nil
}

// FetchHistory yields the messages of channel in file order, skipping everything up
// to and including after. Numeric ids are compared numerically.
func (s *Source) FetchHistory(
	ctx context.Context,
	channel corpus.ChannelID,
	after *corpus.MessageID,
) iter.Seq2[crawler.Message, error] {
	return func(yield func(crawler.Message, error) bool) {
		path, ok := s.files[channel]
		if !ok {
			yield(crawler.Message{}, fmt.Errorf("jsonexport: unknown channel %s", channel))
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				err = fmt.Errorf("%w: %w", crawler.ErrForbidden, err)
			}
			yield(crawler.Message{}, fmt.Errorf("jsonexport: read %s: %w", path, err))
			return
		}
		if !gjson.ValidBytes(data) {
			yield(crawler.Message{}, fmt.Errorf("jsonexport: %s is not valid JSON", path))
			return
		}
		skipping := after != nil
		gjson.GetBytes(data, "messages").ForEach(func(_, value gjson.Result) bool {
			if ctx.Err() != nil {
				return false
			}
			msg := crawler.Message{
				ID:      corpus.MessageID(value.Get("id").String()),
				Channel: channel,
				Author:  corpus.AuthorID(value.Get("author.id").String()),
				Content: value.Get("content").String(),
				Bot:     value.Get("author.isBot").Bool(),
			}
			if skipping {
				if msg.ID == *after {
					skipping = false
					return true
				}
				if !isAfter(msg.ID, *after) {
					return true
				}
				skipping = false
			}
			if !contentTypes[value.Get("type").String()] {
				return true
			}
			return yield(msg, nil)
		})
	}
}

func (s *Source) IsBotAuthor(msg crawler.Message) bool {
	return msg.Bot
}

// isAfter reports whether numeric id is greater than numeric mark. Other ids are
// located by position instead.
func isAfter(id, mark corpus.MessageID) bool {
	a, errA := strconv.ParseUint(string(id), 10, 64)
	b, errB := strconv.ParseUint(string(mark), 10, 64)
	if errA == nil && errB == nil {
		return a > b
	}
	return false
}
