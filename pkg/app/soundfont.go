package app

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/zurustar/gofluid/pkg/fileutil"
)

// DefaultSoundFontCatalog は fluid-soundfont-gm と timgm6mb-soundfont パッケージが
// インストールする SoundFont
var DefaultSoundFontCatalog = []string{
	"/usr/share/sounds/sf2/FluidR3_GM.sf2",
	"/usr/share/sounds/sf2/TimGM6mb.sf2",
}

// ErrNoSoundFont は SoundFont が見つからないときのエラー
var ErrNoSoundFont = errors.New("no sound font can be found")

// FindSoundFont は次の優先順位で SoundFont を探す
//  1. explicit（--soundfont フラグ、または SOUNDFONT 環境変数）
//  2. カレントディレクトリの *.sf2（名前順で最初のもの、拡張子の大小は無視）
//  3. catalog の先頭から、root 上に存在する最初のファイル（ファイル名の大小は無視）
//
// explicit が指定されていれば存在チェックはしない。読み込みに失敗すれば
// SoundFont の読み込みエラーとして報告される
func FindSoundFont(explicit string, cwd, root fileutil.FileSystem, catalog []string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if cwd != nil {
		if names, err := fileutil.ListByExt(cwd, ".", ".sf2"); err == nil && len(names) > 0 {
			return names[0], nil
		}
	}

	if root != nil {
		for _, sf := range catalog {
			if found, err := root.FindFile(filepath.Dir(sf), filepath.Base(sf)); err == nil {
				return found, nil
			}
		}
	}

	return "", fmt.Errorf("%w (use --soundfont or %s)", ErrNoSoundFont, "SOUNDFONT")
}
