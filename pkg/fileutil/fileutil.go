package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FindFileCaseInsensitive は dir 内で filename に大文字小文字を無視して一致する
// ファイルを探し、実際のパスを返す。SoundFont や MIDI ファイル名の大小が
// プラットフォームごとに異なっていても見つけられる。
//
//	path, err := FindFileCaseInsensitive("/usr/share/sounds/sf2", "fluidr3_gm.SF2")
func FindFileCaseInsensitive(dir, filename string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	name, ok := matchEntry(entries, filename)
	if !ok {
		return "", notFound(dir, filename)
	}
	return filepath.Join(dir, name), nil
}

// FindFileCaseInsensitiveFS は FindFileCaseInsensitive の fs.FS 版。
// 返すパスは "/" 区切り。
func FindFileCaseInsensitiveFS(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	name, ok := matchEntry(entries, filename)
	if !ok {
		return "", notFound(dir, filename)
	}
	return path.Join(dir, name), nil
}

func matchEntry(entries []fs.DirEntry, filename string) (string, bool) {
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), filename) {
			return entry.Name(), true
		}
	}
	return "", false
}

func notFound(dir, filename string) error {
	return fmt.Errorf("file not found: %s (searched in %s): %w", filename, dir, fs.ErrNotExist)
}
