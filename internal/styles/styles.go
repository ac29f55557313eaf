// Package styles resolves which voice style to use for an utterance and
// blends multi-voice specs into a single conditioning vector.
package styles

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cantolabs/canto/internal/voicebank"
)

// ErrStyleNotFound reports a single-style lookup that missed the bank.
var ErrStyleNotFound = errors.New("style not found")

// blendScale is applied to every parsed blend weight. The model's voice
// packs were tuned with weights written as tenths ("af_sky.4" means 0.4),
// so the parsed digits are scaled down once here.
const blendScale = 0.1

// Component is one voice in a blend with its parsed weight (pre-scale).
type Component struct {
	Name   string
	Weight float32
}

// Spec is a parsed style specification: either a single named style or a
// weighted blend.
type Spec struct {
	single     string
	components []Component
}

// ParseSpec parses "name" or "a.4+b.6" once at the API boundary. Malformed
// blend components (no dot, unparseable weight) are skipped the way the
// synthesis path has always treated them.
func ParseSpec(raw string) Spec {
	if !strings.Contains(raw, "+") {
		return Spec{single: raw}
	}
	var components []Component
	for _, part := range strings.Split(raw, "+") {
		name, portion, ok := strings.Cut(part, ".")
		if !ok {
			continue
		}
		w, err := strconv.ParseFloat(portion, 32)
		if err != nil {
			continue
		}
		components = append(components, Component{Name: name, Weight: float32(w)})
	}
	return Spec{single: raw, components: components}
}

// Single returns the style name and true when the spec is not a blend.
func (s Spec) Single() (string, bool) {
	if len(s.components) == 0 {
		return s.single, true
	}
	return "", false
}

// Components returns the blend components, nil for a single style.
func (s Spec) Components() []Component {
	return s.components
}

// String returns the original spec text.
func (s Spec) String() string { return s.single }

// Resolve picks the effective style name for a language. It is total: the
// returned name always exists in the bank (blend specs are returned as-is
// since Mix skips absent components).
//
// With force set the user's style wins if present, otherwise the first
// available style with a warning. Without force the language table is
// consulted first, then the user's style, then the first available.
func Resolve(lang, userStyle string, force bool, bank *voicebank.Bank, log *slog.Logger) string {
	if force {
		if styleUsable(userStyle, bank) {
			return userStyle
		}
		fallback := bank.First()
		log.Warn("forced style unavailable, using fallback",
			slog.String("style", userStyle),
			slog.String("fallback", fallback))
		return fallback
	}

	tableStyle := VoiceForLanguage(lang, bank.Custom())
	if styleUsable(tableStyle, bank) {
		log.Debug("using language voice table",
			slog.String("language", lang),
			slog.String("style", tableStyle))
		return tableStyle
	}
	if styleUsable(userStyle, bank) {
		return userStyle
	}

	fallback := bank.First()
	log.Warn("no usable style for language, using fallback",
		slog.String("language", lang),
		slog.String("style", userStyle),
		slog.String("fallback", fallback))
	return fallback
}

// styleUsable reports whether a style spec can produce audio from this bank:
// a single style must exist, a blend needs at least one present component.
func styleUsable(raw string, bank *voicebank.Bank) bool {
	if raw == "" {
		return false
	}
	spec := ParseSpec(raw)
	if name, ok := spec.Single(); ok {
		return bank.Has(name)
	}
	for _, c := range spec.Components() {
		if bank.Has(c.Name) {
			return true
		}
	}
	return false
}

// Mix produces the conditioning vector for a spec at the given token count.
// Single styles error with ErrStyleNotFound when absent; blends accumulate
// weighted rows and silently skip absent names, so the output for a given
// spec and bank is deterministic.
func Mix(bank *voicebank.Bank, spec Spec, seqLen int) ([]float32, error) {
	if name, ok := spec.Single(); ok {
		vec, err := bank.Vector(name, seqLen)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrStyleNotFound, name)
		}
		return vec, nil
	}

	blended := make([]float32, voicebank.StyleDim)
	for _, c := range spec.Components() {
		vec, err := bank.Vector(c.Name, seqLen)
		if err != nil {
			continue
		}
		portion := c.Weight * blendScale
		for j, v := range vec {
			blended[j] += v * portion
		}
	}
	return blended, nil
}
