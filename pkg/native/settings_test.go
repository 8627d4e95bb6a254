package native

import (
	"testing"

	"github.com/zurustar/gofluid/pkg/fluid"
)

func TestSettingsCodesPerVersion(t *testing.T) {
	tests := []struct {
		api        int
		ok, failed int
		strGetter  bool
	}{
		{api: 1, ok: 1, failed: 0, strGetter: true},
		{api: 2, ok: 0, failed: -1, strGetter: false},
	}
	for _, tt := range tests {
		lib := newTestLibrary(t, tt.api)
		raw := lib.NewSettings()

		if code := raw.SetNum(fluid.KeyGain, 0.5); code != tt.ok {
			t.Errorf("v%d: SetNum code = %d, want %d", tt.api, code, tt.ok)
		}
		if code := raw.SetNum(fluid.KeyGain, 11); code != tt.failed {
			t.Errorf("v%d: out of range SetNum code = %d, want %d", tt.api, code, tt.failed)
		}
		if code := raw.SetInt("synth.unknown", 1); code != tt.failed {
			t.Errorf("v%d: unknown key code = %d, want %d", tt.api, code, tt.failed)
		}
		if _, code := raw.GetInt(fluid.KeyGain); code != tt.failed {
			t.Errorf("v%d: GetInt on num key code = %d, want %d", tt.api, code, tt.failed)
		}
		_, ok := raw.(fluid.StrGetter)
		if ok != tt.strGetter {
			t.Errorf("v%d: StrGetter = %v, want %v", tt.api, ok, tt.strGetter)
		}
	}
}

func TestSettingsTypes(t *testing.T) {
	raw := newTestLibrary(t, 2).NewSettings()
	tests := map[string]fluid.SettingType{
		fluid.KeyGain:        fluid.NumType,
		KeyPolyphony:         fluid.IntType,
		fluid.KeyAudioDriver: fluid.StrType,
		"synth":              fluid.SetType,
		"synth.chorus":       fluid.SetType,
		"audio.file":         fluid.SetType,
		"synth.gai":          fluid.NoType,
		"":                   fluid.NoType,
	}
	for key, want := range tests {
		if got := raw.Type(key); got != want {
			t.Errorf("Type(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestSettingsOptions(t *testing.T) {
	lib := newTestLibrary(t, 1)
	raw := lib.NewSettings()
	if code := raw.SetStr(fluid.KeyAudioDriver, "alsa"); code != 0 {
		t.Errorf("SetStr(alsa) code = %d, want 0", code)
	}
	if code := raw.SetStr(fluid.KeyAudioDriver, DriverNull); code != 1 {
		t.Errorf("SetStr(null) code = %d, want 1", code)
	}
	v, code := raw.(fluid.StrGetter).GetStr(fluid.KeyAudioDriver)
	if code != 1 || v != DriverNull {
		t.Errorf("GetStr = %q, %d", v, code)
	}
	if code := raw.SetStr(KeyFileName, "/tmp/any name.wav"); code != 1 {
		t.Errorf("free-form SetStr code = %d, want 1", code)
	}
}

func TestSettingsGainHook(t *testing.T) {
	lib := newTestLibrary(t, 2)
	raw := lib.NewSettings()
	synthRaw, err := lib.NewSynth(raw)
	if err != nil {
		t.Fatal(err)
	}
	defer synthRaw.Delete()

	if synthRaw.Gain() != 0.2 {
		t.Errorf("initial gain = %v, want 0.2", synthRaw.Gain())
	}
	raw.SetNum(fluid.KeyGain, 0.8)
	if synthRaw.Gain() != 0.8 {
		t.Errorf("gain after settings write = %v, want 0.8", synthRaw.Gain())
	}
}

func TestSettingsThroughWrapper(t *testing.T) {
	for _, api := range []int{1, 2} {
		h := fluid.NewHandle(newTestLibrary(t, api))
		s, err := fluid.NewSettings(h)
		if err != nil {
			t.Fatalf("v%d: NewSettings failed: %v", api, err)
		}
		if err := s.SetQuality(fluid.QualityLow); err != nil {
			t.Fatalf("v%d: SetQuality failed: %v", api, err)
		}
		rate, err := s.GetNum(fluid.KeySampleRate)
		if err != nil || rate != 22050 {
			t.Errorf("v%d: sample rate = %v, %v", api, rate, err)
		}
		if err := s.Set(fluid.KeyAudioDriver, "bogus"); err == nil {
			t.Errorf("v%d: expected rejected driver name", api)
		}
		s.Close()
	}
}

func TestKeysSorted(t *testing.T) {
	keys := Keys()
	if len(keys) != len(registry) {
		t.Fatalf("Keys() returned %d keys, want %d", len(keys), len(registry))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Errorf("keys not sorted at %d: %q >= %q", i, keys[i-1], keys[i])
		}
	}
}
