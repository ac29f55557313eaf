// Package voicebank loads the style vector archive the model conditions on.
// The archive is an NPZ file (a zip of NPY arrays), one array per style,
// shaped [rows][1][256]: row N is the style embedding used for an input of
// N tokens. The bank is immutable after Load and safe for concurrent reads.
package voicebank

import (
	"archive/zip"
	"fmt"
	"sort"
	"strings"

	"github.com/sbinet/npyio"
)

// StyleDim is the width of every style embedding.
const StyleDim = 256

type style struct {
	rows int
	data []float32 // rows * StyleDim, row-major
}

type Bank struct {
	path   string
	styles map[string]style
	sorted []string
}

// Load reads every NPY entry in the archive. Arrays may be shaped
// [rows][1][256], [rows][256], or flat; anything whose length is not a
// multiple of 256 is rejected.
func Load(path string) (*Bank, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open voice archive: %w", err)
	}
	defer r.Close()

	bank := &Bank{path: path, styles: make(map[string]style)}
	for _, f := range r.File {
		name := strings.TrimSuffix(f.Name, ".npy")
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open voice entry %s: %w", f.Name, err)
		}
		npr, err := npyio.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("read voice entry %s: %w", f.Name, err)
		}
		var data []float32
		if err := npr.Read(&data); err != nil {
			rc.Close()
			return nil, fmt.Errorf("decode voice entry %s: %w", f.Name, err)
		}
		rc.Close()

		if len(data) == 0 || len(data)%StyleDim != 0 {
			return nil, fmt.Errorf("voice %s: vector length %d not a multiple of %d", name, len(data), StyleDim)
		}
		bank.styles[name] = style{rows: len(data) / StyleDim, data: data}
		bank.sorted = append(bank.sorted, name)
	}

	if len(bank.styles) == 0 {
		return nil, fmt.Errorf("voice archive %s contains no styles", path)
	}
	sort.Strings(bank.sorted)
	return bank, nil
}

// Vector returns a copy of the style row for the given token count. The row
// index is clamped to the last populated row so oversized inputs degrade
// instead of panicking.
func (b *Bank) Vector(name string, seqLen int) ([]float32, error) {
	s, ok := b.styles[name]
	if !ok {
		return nil, fmt.Errorf("unknown style %q", name)
	}
	row := seqLen
	if row >= s.rows {
		row = s.rows - 1
	}
	if row < 0 {
		row = 0
	}
	out := make([]float32, StyleDim)
	copy(out, s.data[row*StyleDim:(row+1)*StyleDim])
	return out, nil
}

// Has reports whether a style exists in the archive.
func (b *Bank) Has(name string) bool {
	_, ok := b.styles[name]
	return ok
}

// Styles lists all style names in sorted order.
func (b *Bank) Styles() []string {
	out := make([]string, len(b.sorted))
	copy(out, b.sorted)
	return out
}

// First returns the first style in sorted order, the deterministic fallback
// when nothing better is available.
func (b *Bank) First() string {
	return b.sorted[0]
}

var customPrefixes = []string{
	"en_", "zh_", "ja_", "fr_", "de_", "es_", "pt_", "ru_", "ko_",
}

// Custom reports whether the archive is a full-locale custom voice set
// rather than the standard distribution. The answer selects which
// language-to-voice table the resolver consults.
func (b *Bank) Custom() bool {
	if strings.Contains(b.path, "custom") {
		return true
	}
	for _, name := range b.sorted {
		for _, prefix := range customPrefixes {
			if strings.HasPrefix(name, prefix) {
				return true
			}
		}
	}
	return false
}
