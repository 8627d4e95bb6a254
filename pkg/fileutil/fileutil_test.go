package fileutil

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

var lookupCases = []struct {
	name   string
	search string
	want   string // 空なら見つからないこと
}{
	{"exact match", "FluidR3_GM.sf2", "FluidR3_GM.sf2"},
	{"lowercase search", "fluidr3_gm.sf2", "FluidR3_GM.sf2"},
	{"uppercase search", "TIMGM6MB.SF2", "TimGM6mb.sf2"},
	{"mixed case midi", "Bach.Mid", "bach.mid"},
	{"directory is skipped", "fonts", ""},
	{"not found", "missing.sf2", ""},
}

func TestFindFileCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"FluidR3_GM.sf2", "TimGM6mb.sf2", "bach.mid"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "fonts"), 0755); err != nil {
		t.Fatal(err)
	}

	for _, tt := range lookupCases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindFileCaseInsensitive(dir, tt.search)
			if tt.want == "" {
				if err == nil {
					t.Errorf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != filepath.Join(dir, tt.want) {
				t.Errorf("got %s, want %s", got, filepath.Join(dir, tt.want))
			}
		})
	}
}

func TestFindFileCaseInsensitiveFS(t *testing.T) {
	mfs := fstest.MapFS{
		"sf/FluidR3_GM.sf2":  {Data: []byte("x")},
		"sf/TimGM6mb.sf2":    {Data: []byte("x")},
		"sf/bach.mid":        {Data: []byte("x")},
		"sf/fonts/inner.sf2": {Data: []byte("x")},
	}

	for _, tt := range lookupCases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindFileCaseInsensitiveFS(mfs, "sf", tt.search)
			if tt.want == "" {
				if err == nil {
					t.Errorf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != "sf/"+tt.want {
				t.Errorf("got %s, want sf/%s", got, tt.want)
			}
		})
	}
}
