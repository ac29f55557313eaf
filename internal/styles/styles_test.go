package styles

import (
	"archive/zip"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio"

	"github.com/cantolabs/canto/internal/voicebank"
)

func testBank(t *testing.T, filename string, voices map[string]float32) *voicebank.Bank {
	t.Helper()
	path := filepath.Join(t.TempDir(), filename)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, fill := range voices {
		w, err := zw.Create(name + ".npy")
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		data := make([]float32, 2*voicebank.StyleDim)
		for i := range data {
			data[i] = fill
		}
		if err := npyio.Write(w, data); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	bank, err := voicebank.Load(path)
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	return bank
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseSpecSingle(t *testing.T) {
	spec := ParseSpec("af_sky")
	if name, ok := spec.Single(); !ok || name != "af_sky" {
		t.Fatalf("expected single style, got %v %v", name, ok)
	}
}

func TestParseSpecBlend(t *testing.T) {
	spec := ParseSpec("af_sky.4+af_nicole.6")
	comps := spec.Components()
	if len(comps) != 2 {
		t.Fatalf("expected 2 components, got %v", comps)
	}
	if comps[0].Name != "af_sky" || comps[0].Weight != 4 {
		t.Fatalf("unexpected first component: %+v", comps[0])
	}
	if comps[1].Name != "af_nicole" || comps[1].Weight != 6 {
		t.Fatalf("unexpected second component: %+v", comps[1])
	}
}

func TestParseSpecSkipsMalformed(t *testing.T) {
	spec := ParseSpec("af_sky.4+broken+af_nicole.6")
	if len(spec.Components()) != 2 {
		t.Fatalf("expected malformed component skipped, got %v", spec.Components())
	}
}

func TestMixSingle(t *testing.T) {
	bank := testBank(t, "voices.bin", map[string]float32{"af_sky": 2})
	vec, err := Mix(bank, ParseSpec("af_sky"), 1)
	if err != nil {
		t.Fatalf("mix: %v", err)
	}
	if vec[0] != 2 {
		t.Fatalf("expected raw vector, got %v", vec[0])
	}
}

func TestMixSingleMissing(t *testing.T) {
	bank := testBank(t, "voices.bin", map[string]float32{"af_sky": 2})
	_, err := Mix(bank, ParseSpec("zz_missing"), 1)
	if !errors.Is(err, ErrStyleNotFound) {
		t.Fatalf("expected ErrStyleNotFound, got %v", err)
	}
}

func TestMixBlendScale(t *testing.T) {
	bank := testBank(t, "voices.bin", map[string]float32{"af_sky": 1, "af_nicole": 1})
	vec, err := Mix(bank, ParseSpec("af_sky.4+af_nicole.6"), 1)
	if err != nil {
		t.Fatalf("mix: %v", err)
	}
	// weights 4 and 6 scale by 0.1: 1*0.4 + 1*0.6 = 1.0
	if math.Abs(float64(vec[0])-1.0) > 1e-6 {
		t.Fatalf("expected blended value 1.0, got %v", vec[0])
	}
}

func TestMixBlendSkipsAbsent(t *testing.T) {
	bank := testBank(t, "voices.bin", map[string]float32{"af_sky": 1})
	vec, err := Mix(bank, ParseSpec("af_sky.4+zz_missing.6"), 1)
	if err != nil {
		t.Fatalf("mix: %v", err)
	}
	if math.Abs(float64(vec[0])-0.4) > 1e-6 {
		t.Fatalf("expected only present component, got %v", vec[0])
	}
}

func TestResolveLanguageTable(t *testing.T) {
	bank := testBank(t, "voices.bin", map[string]float32{"af_sky": 1, "ef_dora": 1})
	if got := Resolve("es", "af_sky", false, bank, discardLogger()); got != "ef_dora" {
		t.Fatalf("expected table voice ef_dora, got %q", got)
	}
}

func TestResolveBaseLanguage(t *testing.T) {
	bank := testBank(t, "voices.bin", map[string]float32{"ef_dora": 1})
	if got := Resolve("es-pe", "", false, bank, discardLogger()); got != "ef_dora" {
		t.Fatalf("expected base-language voice, got %q", got)
	}
}

func TestResolveFallsBackToUserStyle(t *testing.T) {
	bank := testBank(t, "voices.bin", map[string]float32{"my_voice": 1})
	if got := Resolve("es", "my_voice", false, bank, discardLogger()); got != "my_voice" {
		t.Fatalf("expected user style, got %q", got)
	}
}

func TestResolveForce(t *testing.T) {
	bank := testBank(t, "voices.bin", map[string]float32{"af_sky": 1, "ef_dora": 1})
	if got := Resolve("es", "af_sky", true, bank, discardLogger()); got != "af_sky" {
		t.Fatalf("expected forced style, got %q", got)
	}
}

func TestResolveForceMissing(t *testing.T) {
	bank := testBank(t, "voices.bin", map[string]float32{"af_sky": 1})
	if got := Resolve("en-us", "zz_missing", true, bank, discardLogger()); got != "af_sky" {
		t.Fatalf("expected deterministic fallback, got %q", got)
	}
}

func TestResolveTotal(t *testing.T) {
	bank := testBank(t, "voices.bin", map[string]float32{"qq_only": 1})
	got := Resolve("xx-unknown", "zz_missing", false, bank, discardLogger())
	if got != "qq_only" {
		t.Fatalf("expected the only available style, got %q", got)
	}
}

func TestVoiceForLanguageCustomTable(t *testing.T) {
	if got := VoiceForLanguage("ja", true); got != "ja_fay" {
		t.Fatalf("expected custom table voice, got %q", got)
	}
	if got := VoiceForLanguage("ja", false); got != "jf_alpha" {
		t.Fatalf("expected default table voice, got %q", got)
	}
	if got := VoiceForLanguage("xx", false); got != "af_sky" {
		t.Fatalf("expected default entry, got %q", got)
	}
}
