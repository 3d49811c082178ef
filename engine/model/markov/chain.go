package markov

import (
	"hash/fnv"
	"math/rand/v2"
	"strings"
)

const (
	begin = "___BEGIN__"
	end   = "___END__"
	sep   = "\x00"
)

// Chain is a word-level Markov chain. It is never modified after construction, so
// concurrent Sample calls and merges read it without locking.
type Chain struct {
	stateSize int
	// transitions maps a joined state to the counts of each following word.
	transitions map[string]map[string]int
	// sentences holds hashes of every training line, used to reject verbatim output.
	sentences map[uint64]struct{}
}

func newChain(stateSize int) *Chain {
	return &Chain{
		stateSize:   stateSize,
		transitions: make(map[string]map[string]int),
		sentences:   make(map[uint64]struct{}),
	}
}

func hashSentence(words []string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(words, " ")))
	return h.Sum64()
}

func beginState(size int) []string {
	state := make([]string, size)
	for i := range state {
		state[i] = begin
	}
	return state
}

func (c *Chain) addSentence(words []string) {
	c.sentences[hashSentence(words)] = struct{}{}
	items := append(beginState(c.stateSize), words...)
	items = append(items, end)
	for i := 0; i+c.stateSize < len(items); i++ {
		key := strings.Join(items[i:i+c.stateSize], sep)
		next := items[i+c.stateSize]
		row, ok := c.transitions[key]
		if !ok {
			row = make(map[string]int)
			c.transitions[key] = row
		}
		row[next]++
	}
}

func (c *Chain) merge(other *Chain) *Chain {
	out := newChain(c.stateSize)
	for _, src := range []*Chain{c, other} {
		for key, row := range src.transitions {
			dst, ok := out.transitions[key]
			if !ok {
				dst = make(map[string]int, len(row))
				out.transitions[key] = dst
			}
			for word, n := range row {
				dst[word] += n
			}
		}
		for h := range src.sentences {
			out.sentences[h] = struct{}{}
		}
	}
	return out
}

func (c *Chain) move(state []string) string {
	row := c.transitions[strings.Join(state, sep)]
	total := 0
	for _, n := range row {
		total += n
	}
	if total == 0 {
		return end
	}
	pick := rand.IntN(total)
	for word, n := range row {
		pick -= n
		if pick < 0 {
			return word
		}
	}
	return end
}

// walk produces one random word sequence, bounded by maxWords.
func (c *Chain) walk(maxWords int) []string {
	state := beginState(c.stateSize)
	var words []string
	for len(words) < maxWords {
		next := c.move(state)
		if next == end {
			break
		}
		words = append(words, next)
		state = append(state[1:], next)
	}
	return words
}

// Transitions returns the number of distinct states in the chain.
func (c *Chain) Transitions() int {
	return len(c.transitions)
}
