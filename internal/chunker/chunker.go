// Package chunker splits utterance text into chunks that fit the model's
// token window. Token counts come from an injected counter so splitting
// decisions use the same phonemize-and-tokenize path as synthesis.
package chunker

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxTokens leaves headroom under the model's 512-token hard limit.
const DefaultMaxTokens = 500

// ErrTokenizer reports a token-count failure. It aborts the whole
// utterance: without counts the budget cannot be honored.
var ErrTokenizer = errors.New("token counting failed")

// TokenCounter reports how many model tokens a piece of text produces.
type TokenCounter interface {
	Count(ctx context.Context, text, lang string) (int, error)
}

// Chunk is one synthesis unit. Irreducible marks a single word that alone
// exceeds the budget and is passed through for the downstream clamp to
// handle.
type Chunk struct {
	Text        string
	Irreducible bool
}

type Chunker struct {
	counter   TokenCounter
	maxTokens int
}

// New builds a chunker; maxTokens <= 0 selects DefaultMaxTokens.
func New(counter TokenCounter, maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Chunker{counter: counter, maxTokens: maxTokens}
}

// Split breaks text into budget-sized chunks. Sentences are packed greedily;
// a sentence that alone exceeds the budget is split on words. Chunk order
// always follows input order.
func (c *Chunker) Split(ctx context.Context, text, lang string) ([]Chunk, error) {
	var chunks []Chunk
	current := ""

	for _, sentence := range splitSentences(text) {
		count, err := c.count(ctx, sentence, lang)
		if err != nil {
			return nil, err
		}

		if count > c.maxTokens {
			if current != "" {
				chunks = append(chunks, Chunk{Text: current})
				current = ""
			}
			wordChunks, err := c.splitWords(ctx, sentence, lang)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, wordChunks...)
			continue
		}

		if current == "" {
			current = sentence
			continue
		}

		combined := current + " " + sentence
		combinedCount, err := c.count(ctx, combined, lang)
		if err != nil {
			return nil, err
		}
		if combinedCount > c.maxTokens {
			chunks = append(chunks, Chunk{Text: current})
			current = sentence
		} else {
			current = combined
		}
	}

	if current != "" {
		chunks = append(chunks, Chunk{Text: current})
	}
	return chunks, nil
}

// splitWords packs words greedily; a word that alone busts the budget is
// emitted by itself, flagged irreducible.
func (c *Chunker) splitWords(ctx context.Context, sentence, lang string) ([]Chunk, error) {
	var chunks []Chunk
	wordChunk := ""

	for _, word := range strings.Fields(sentence) {
		test := word
		if wordChunk != "" {
			test = wordChunk + " " + word
		}
		count, err := c.count(ctx, test, lang)
		if err != nil {
			return nil, err
		}
		if count <= c.maxTokens {
			wordChunk = test
			continue
		}
		if wordChunk != "" {
			chunks = append(chunks, Chunk{Text: wordChunk})
			wordChunk = ""
		}
		wordCount, err := c.count(ctx, word, lang)
		if err != nil {
			return nil, err
		}
		if wordCount > c.maxTokens {
			chunks = append(chunks, Chunk{Text: word, Irreducible: true})
		} else {
			wordChunk = word
		}
	}

	if wordChunk != "" {
		chunks = append(chunks, Chunk{Text: wordChunk})
	}
	return chunks, nil
}

func (c *Chunker) count(ctx context.Context, text, lang string) (int, error) {
	n, err := c.counter.Count(ctx, text, lang)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTokenizer, err)
	}
	return n, nil
}

// splitSentences splits on sentence-ending punctuation and re-appends a
// period; the exact terminal mark does not survive, only the boundary.
func splitSentences(text string) []string {
	var sentences []string
	for _, part := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '?' || r == '!' || r == ';'
	}) {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		sentences = append(sentences, trimmed+".")
	}
	return sentences
}
