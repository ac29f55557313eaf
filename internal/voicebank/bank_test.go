package voicebank

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio"
)

func writeArchive(t *testing.T, path string, voices map[string][]float32) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, data := range voices {
		w, err := zw.Create(name + ".npy")
		if err != nil {
			t.Fatalf("create entry: %v", err)
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
}

func rampVoice(rows int, base float32) []float32 {
	data := make([]float32, rows*StyleDim)
	for r := 0; r < rows; r++ {
		for c := 0; c < StyleDim; c++ {
			data[r*StyleDim+c] = base + float32(r)
		}
	}
	return data
}

func TestLoadAndVector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voices.bin")
	writeArchive(t, path, map[string][]float32{
		"af_sky":  rampVoice(3, 1),
		"am_liam": rampVoice(3, 100),
		"bf_emma": rampVoice(2, 200),
	})

	bank, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	vec, err := bank.Vector("af_sky", 2)
	if err != nil {
		t.Fatalf("vector: %v", err)
	}
	if len(vec) != StyleDim {
		t.Fatalf("expected %d floats, got %d", StyleDim, len(vec))
	}
	if vec[0] != 3 {
		t.Fatalf("expected row 2 value 3, got %v", vec[0])
	}
}

func TestVectorClampsRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voices.bin")
	writeArchive(t, path, map[string][]float32{"af_sky": rampVoice(3, 1)})

	bank, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	vec, err := bank.Vector("af_sky", 999)
	if err != nil {
		t.Fatalf("vector: %v", err)
	}
	if vec[0] != 3 {
		t.Fatalf("expected clamp to last row, got %v", vec[0])
	}
}

func TestVectorUnknownStyle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voices.bin")
	writeArchive(t, path, map[string][]float32{"af_sky": rampVoice(1, 1)})

	bank, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := bank.Vector("zz_missing", 0); err == nil {
		t.Fatal("expected error for unknown style")
	}
}

func TestStylesSortedAndFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voices.bin")
	writeArchive(t, path, map[string][]float32{
		"bm_george": rampVoice(1, 1),
		"af_sky":    rampVoice(1, 1),
	})

	bank, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	styles := bank.Styles()
	if styles[0] != "af_sky" || styles[1] != "bm_george" {
		t.Fatalf("expected sorted styles, got %v", styles)
	}
	if bank.First() != "af_sky" {
		t.Fatalf("expected deterministic first style, got %q", bank.First())
	}
}

func TestCustomDetection(t *testing.T) {
	dir := t.TempDir()

	standard := filepath.Join(dir, "voices-v1.0.bin")
	writeArchive(t, standard, map[string][]float32{"af_sky": rampVoice(1, 1)})
	bank, err := Load(standard)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if bank.Custom() {
		t.Fatal("expected standard archive")
	}

	byName := filepath.Join(dir, "voices-full.bin")
	writeArchive(t, byName, map[string][]float32{"en_eey": rampVoice(1, 1)})
	bank, err = Load(byName)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bank.Custom() {
		t.Fatal("expected custom archive by style prefix")
	}

	byPath := filepath.Join(dir, "voices-custom.bin")
	writeArchive(t, byPath, map[string][]float32{"af_sky": rampVoice(1, 1)})
	bank, err = Load(byPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bank.Custom() {
		t.Fatal("expected custom archive by path")
	}
}

func TestLoadRejectsBadShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voices.bin")
	writeArchive(t, path, map[string][]float32{"af_sky": make([]float32, 100)})
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for non-multiple-of-256 vector")
	}
}
