// Package segment turns an incremental text stream into synthesis units. A
// Buffer accumulates increments, locks language and style once (detection
// never re-runs mid-session), and emits complete sentences in arrival order.
package segment

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"github.com/cantolabs/canto/internal/phoneme"
)

const (
	// DefaultDetectAfterBytes is how much pending text must accumulate
	// before language detection is trusted.
	DefaultDetectAfterBytes = 60
	// DefaultPendingByteCeiling bounds how much punctuation-free text may
	// sit in the buffer before a slice is force-emitted.
	DefaultPendingByteCeiling = 200
)

// Unit is one synthesis unit with the session's locked language and style.
type Unit struct {
	Text     string
	Language string
	Style    string
}

// Stats counts buffer activity for observability.
type Stats struct {
	UnitsEmitted int
	GuardTrips   int
	BytesDropped int
}

// Options configures a Buffer. StyleResolver maps the locked language to the
// style used for the whole session; it runs exactly once.
type Options struct {
	AutoDetect         bool
	Language           string
	DetectAfterBytes   int
	PendingByteCeiling int
	StyleResolver      func(lang string) string
	Logger             *slog.Logger
}

// Buffer is not safe for concurrent use; a session owns it from one
// goroutine.
type Buffer struct {
	opts      Options
	pending   string
	language  string
	style     string
	locked    bool
	stats     Stats
	tokenizer *sentences.DefaultSentenceTokenizer
}

func NewBuffer(opts Options) (*Buffer, error) {
	if opts.DetectAfterBytes <= 0 {
		opts.DetectAfterBytes = DefaultDetectAfterBytes
	}
	if opts.PendingByteCeiling <= 0 {
		opts.PendingByteCeiling = DefaultPendingByteCeiling
	}
	if opts.Language == "" {
		opts.Language = phoneme.FallbackLanguage
	}
	if opts.StyleResolver == nil {
		opts.StyleResolver = func(string) string { return "" }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, err
	}
	return &Buffer{opts: opts, tokenizer: tokenizer}, nil
}

// Language returns the locked language, empty before the lock.
func (b *Buffer) Language() string {
	if !b.locked {
		return ""
	}
	return b.language
}

// Style returns the locked style, empty before the lock.
func (b *Buffer) Style() string {
	if !b.locked {
		return ""
	}
	return b.style
}

// Stats returns a copy of the counters.
func (b *Buffer) Stats() Stats {
	return b.stats
}

// Feed appends an increment and returns any complete units. Before the
// language lock nothing is emitted: with auto-detect enabled the buffer
// holds text until enough has accumulated for a trustworthy detection.
func (b *Buffer) Feed(increment string) []Unit {
	b.pending += increment

	if !b.locked {
		if b.opts.AutoDetect && len(b.pending) <= b.opts.DetectAfterBytes {
			return nil
		}
		b.lock()
	}

	var texts []string
	if isCJK(b.language) {
		texts = b.scanCJK()
	} else {
		texts = b.segmentLatin()
	}

	// Starvation guard: long punctuation-free input must not stall the
	// stream forever.
	if len(texts) == 0 && len(b.pending) > b.opts.PendingByteCeiling {
		cut := runeBoundary(b.pending, b.opts.PendingByteCeiling)
		texts = append(texts, b.pending[:cut])
		b.pending = b.pending[cut:]
		b.stats.GuardTrips++
	}

	return b.emit(texts)
}

// Flush emits whatever remains at end-of-input, with synthetic terminal
// punctuation. It locks the language first if no Feed ever did.
func (b *Buffer) Flush() (Unit, bool) {
	if !b.locked {
		b.lock()
	}
	remainder := strings.TrimSpace(b.pending)
	b.pending = ""
	if remainder == "" {
		return Unit{}, false
	}
	units := b.emit([]string{remainder})
	return units[0], true
}

func (b *Buffer) lock() {
	b.language = b.opts.Language
	if b.opts.AutoDetect {
		if detected, ok := phoneme.DetectLanguage(b.pending); ok {
			b.language = detected
		} else {
			b.opts.Logger.Debug("language detection inconclusive, using configured language",
				slog.String("language", b.language))
		}
	}
	b.style = b.opts.StyleResolver(b.language)
	b.locked = true
	b.opts.Logger.Info("session language locked",
		slog.String("language", b.language),
		slog.String("style", b.style))
}

// scanCJK splits on CJK and ASCII terminal punctuation character by
// character; the remainder stays pending.
func (b *Buffer) scanCJK() []string {
	var out []string
	var current strings.Builder
	for _, c := range b.pending {
		current.WriteRune(c)
		if isTerminal(c) && strings.TrimSpace(current.String()) != "" {
			out = append(out, current.String())
			current.Reset()
		}
	}
	b.pending = current.String()
	return out
}

// segmentLatin runs the sentence segmenter over pending text. A trailing
// segment without terminal punctuation is retained for the next Feed. The
// emitted/retained split prefers exact byte accounting; when the segmenter
// rewrote spacing the buffer falls back to keeping only the last segment and
// counts the dropped bytes rather than dropping them silently.
func (b *Buffer) segmentLatin() []string {
	segs := b.tokenizer.Tokenize(b.pending)
	if len(segs) == 0 {
		return nil
	}

	raw := make([]string, len(segs))
	total := 0
	for i, s := range segs {
		raw[i] = s.Text
		total += len(s.Text)
	}

	last := strings.TrimSpace(raw[len(raw)-1])
	if hasTerminal(last) {
		b.pending = ""
		return raw
	}

	if len(raw) == 1 {
		// a single incomplete sentence stays buffered whole
		return nil
	}

	complete := raw[:len(raw)-1]
	if total == len(b.pending) {
		b.pending = raw[len(raw)-1]
	} else {
		dropped := len(b.pending) - len(last)
		emitted := 0
		for _, s := range complete {
			emitted += len(s)
		}
		dropped -= emitted
		if dropped > 0 {
			b.stats.BytesDropped += dropped
			b.opts.Logger.Warn("segmenter rewrote spacing, bytes unaccounted",
				slog.Int("bytes", dropped))
		}
		b.pending = last
	}
	return complete
}

func (b *Buffer) emit(texts []string) []Unit {
	var units []Unit
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !hasTerminal(t) {
			t += "."
		}
		units = append(units, Unit{Text: t, Language: b.language, Style: b.style})
	}
	b.stats.UnitsEmitted += len(units)
	return units
}

func isCJK(lang string) bool {
	return strings.HasPrefix(lang, "zh") ||
		strings.HasPrefix(lang, "ja") ||
		strings.HasPrefix(lang, "ko")
}

func isTerminal(c rune) bool {
	switch c {
	case '。', '！', '？', '.', '!', '?':
		return true
	}
	return false
}

func hasTerminal(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	if size == 0 {
		return false
	}
	return isTerminal(r)
}

// runeBoundary returns the largest offset <= max that does not split a rune.
func runeBoundary(s string, max int) int {
	if max >= len(s) {
		return len(s)
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return max
}
