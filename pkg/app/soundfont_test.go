package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/zurustar/gofluid/pkg/fileutil"
)

func TestFindSoundFont_Explicit(t *testing.T) {
	cwd := fileutil.NewEmbedFS(fstest.MapFS{"local.sf2": {Data: []byte("RIFF")}}, "")

	got, err := FindSoundFont("/fonts/explicit.sf2", cwd, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/fonts/explicit.sf2" {
		t.Errorf("got %s, want the explicit path", got)
	}
}

func TestFindSoundFont_CurrentDirectory(t *testing.T) {
	cwd := fileutil.NewEmbedFS(fstest.MapFS{
		"zeta.SF2":  {Data: []byte("RIFF")},
		"alpha.sf2": {Data: []byte("RIFF")},
		"song.mid":  {Data: []byte("MThd")},
	}, "")

	got, err := FindSoundFont("", cwd, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "alpha.sf2" {
		t.Errorf("got %s, want alpha.sf2", got)
	}
}

func TestFindSoundFont_Catalog(t *testing.T) {
	dir := t.TempDir()
	second := filepath.Join(dir, "TimGM6mb.sf2")
	if err := os.WriteFile(second, []byte("RIFF"), 0644); err != nil {
		t.Fatal(err)
	}
	catalog := []string{filepath.Join(dir, "FluidR3_GM.sf2"), second}
	empty := fileutil.NewEmbedFS(fstest.MapFS{"readme.txt": {Data: []byte("x")}}, "")

	got, err := FindSoundFont("", empty, fileutil.NewRealFS(""), catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != second {
		t.Errorf("got %s, want %s", got, second)
	}
}

func TestFindSoundFont_NotFound(t *testing.T) {
	_, err := FindSoundFont("", fileutil.NewEmbedFS(fstest.MapFS{}, ""), fileutil.NewRealFS(""), []string{"/nonexistent/a.sf2"})
	if !errors.Is(err, ErrNoSoundFont) {
		t.Errorf("err = %v, want ErrNoSoundFont", err)
	}
}

func TestFindSoundFont_CatalogIgnoresCase(t *testing.T) {
	root := fileutil.NewEmbedFS(fstest.MapFS{
		"usr/share/sounds/sf2/fluidr3_gm.SF2": {Data: []byte("RIFF")},
	}, "")
	empty := fileutil.NewEmbedFS(fstest.MapFS{}, "")

	got, err := FindSoundFont("", empty, root, []string{"usr/share/sounds/sf2/FluidR3_GM.sf2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "usr/share/sounds/sf2/fluidr3_gm.SF2" {
		t.Errorf("got %s, want the on-disk name", got)
	}
}
