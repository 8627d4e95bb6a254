package native

import (
	"errors"
	"testing"
)

func TestParseSMF(t *testing.T) {
	mf, err := parseSMF(oneSecondSong(), "utf-8")
	if err != nil {
		t.Fatalf("parseSMF failed: %v", err)
	}
	if mf.Division != 480 || mf.TotalTicks != 960 || mf.Format != 0 {
		t.Errorf("header = %+v", mf)
	}
	if len(mf.TrackNames) != 1 || mf.TrackNames[0] != "piano" {
		t.Errorf("track names = %v", mf.TrackNames)
	}
	if mf.tempoAt(0) != defaultMicrosPerBeat {
		t.Errorf("tempo = %d, want default", mf.tempoAt(0))
	}
}

func TestParseSMFMergesTracksStable(t *testing.T) {
	// 500000 then 250000 us per quarter note
	conductor := new(smfTrack).
		meta(0, metaTempo, []byte{0x07, 0xA1, 0x20}).
		meta(240, metaTempo, []byte{0x03, 0xD0, 0x90}).
		end(0)
	a := new(smfTrack).event(0, 0x90, 60, 100).event(240, 0x80, 60, 0).end(0)
	b := new(smfTrack).event(0, 0x91, 64, 100).event(240, 64, 0).end(0) // running status

	mf, err := parseSMF(buildSMF(1, 96, conductor, a, b), "utf-8")
	if err != nil {
		t.Fatalf("parseSMF failed: %v", err)
	}
	var notes []midiEvent
	for _, ev := range mf.Events {
		if ev.Status != 0xFF {
			notes = append(notes, ev)
		}
	}
	if len(notes) != 4 {
		t.Fatalf("got %d channel events, want 4", len(notes))
	}
	if notes[0].Track != 1 || notes[1].Track != 2 || notes[2].Track != 1 || notes[3].Track != 2 {
		t.Errorf("merge order = %+v", notes)
	}
	if notes[3].Status != 0x91 || notes[3].Data2 != 0 {
		t.Errorf("running status event = %+v", notes[3])
	}
	if mf.tempoAt(239) != 500000 || mf.tempoAt(240) != 250000 {
		t.Errorf("tempo map = %+v", mf.Tempos)
	}
}

func TestParseSMFTextEncoding(t *testing.T) {
	// "ピアノ" in Shift_JIS
	sjis := []byte{0x83, 0x73, 0x83, 0x41, 0x83, 0x6D}
	tr := new(smfTrack).meta(0, metaTrackName, sjis).meta(0, metaText, []byte{0xE9}).end(0)
	data := buildSMF(0, 480, tr)

	mf, err := parseSMF(data, "shift_jis")
	if err != nil {
		t.Fatal(err)
	}
	if mf.TrackNames[0] != "ピアノ" {
		t.Errorf("shift_jis track name = %q", mf.TrackNames[0])
	}

	mf, err = parseSMF(data, "latin1")
	if err != nil {
		t.Fatal(err)
	}
	if mf.Texts[0] != "é" {
		t.Errorf("latin1 text = %q", mf.Texts[0])
	}
}

func TestParseSMFErrors(t *testing.T) {
	tests := map[string][]byte{
		"empty":     nil,
		"not midi":  []byte("RIFF0000WAVEfmt "),
		"format 2":  buildSMF(2, 480, new(smfTrack).end(0)),
		"smpte":     buildSMF(0, 0xE728, new(smfTrack).end(0)),
		"truncated": buildSMF(0, 480, new(smfTrack).end(0))[:20],
	}
	for name, data := range tests {
		if _, err := parseSMF(data, "utf-8"); !errors.Is(err, ErrInvalidMIDI) {
			t.Errorf("%s: got %v, want ErrInvalidMIDI", name, err)
		}
	}
}

func TestReadVarLen(t *testing.T) {
	tests := []struct {
		in   []byte
		want int
		n    int
	}{
		{[]byte{0x00}, 0, 1},
		{[]byte{0x7F}, 127, 1},
		{[]byte{0x81, 0x00}, 128, 2},
		{[]byte{0xFF, 0x7F}, 16383, 2},
		{[]byte{0x81, 0x80, 0x00}, 16384, 3},
	}
	for _, tt := range tests {
		got, n := readVarLen(tt.in)
		if got != tt.want || n != tt.n {
			t.Errorf("readVarLen(%x) = %d, %d; want %d, %d", tt.in, got, n, tt.want, tt.n)
		}
	}
}
