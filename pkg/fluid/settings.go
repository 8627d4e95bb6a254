package fluid

import (
	"fmt"
	"strings"
	"sync"
)

// Well known settings keys.
const (
	KeyChorusActive = "synth.chorus.active"
	KeyReverbActive = "synth.reverb.active"
	KeySampleRate   = "synth.sample-rate"
	KeyGain         = "synth.gain"
	KeyAudioDriver  = "audio.driver"
)

// Quality is a preset covering chorus, reverb and sample rate.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "med"
	QualityHigh   Quality = "high"
)

// ParseQuality accepts "low", "med", "medium" and "high".
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return QualityLow, nil
	case "med", "medium":
		return QualityMedium, nil
	case "high":
		return QualityHigh, nil
	}
	return "", fmt.Errorf("unknown quality preset %q (must be low, med or high)", s)
}

type qualityValues struct {
	chorus     int
	reverb     int
	sampleRate float64
}

var qualityTable = map[Quality]qualityValues{
	QualityLow:    {chorus: 0, reverb: 0, sampleRate: 22050},
	QualityMedium: {chorus: 0, reverb: 1, sampleRate: 44100},
	QualityHigh:   {chorus: 1, reverb: 1, sampleRate: 44100},
}

// Settings is a typed view of a library settings table. Values written with
// Set are coerced to the kind the table reports for the key.
type Settings struct {
	h       *Handle
	raw     RawSettings
	quality Quality

	mu     sync.Mutex
	closed bool
}

// NewSettings creates a settings table and applies the medium quality preset.
func NewSettings(h *Handle) (*Settings, error) {
	s := &Settings{
		h:   h,
		raw: h.lib.NewSettings(),
	}
	if err := s.SetQuality(QualityMedium); err != nil {
		s.raw.Delete()
		return nil, fmt.Errorf("apply default quality: %w", err)
	}
	return s, nil
}

// Raw returns the underlying settings table.
func (s *Settings) Raw() RawSettings {
	return s.raw
}

// Type returns the kind the table reports for key.
func (s *Settings) Type(key string) SettingType {
	return s.raw.Type(key)
}

// Get returns the value of key as float64, int or string depending on its kind.
func (s *Settings) Get(key string) (any, error) {
	switch s.raw.Type(key) {
	case NumType:
		return s.GetNum(key)
	case IntType:
		return s.GetInt(key)
	case StrType:
		return s.GetStr(key)
	default:
		return nil, keyError(key, ErrKeyNotFound)
	}
}

// GetNum reads a numeric key.
func (s *Settings) GetNum(key string) (float64, error) {
	if s.raw.Type(key) != NumType {
		return 0, keyError(key, ErrKeyNotFound)
	}
	v, code := s.raw.GetNum(key)
	if s.h.convention.Normalize(code) == Failed {
		return 0, keyError(key, ErrKeyNotFound)
	}
	return v, nil
}

// GetInt reads an integer key.
func (s *Settings) GetInt(key string) (int, error) {
	if s.raw.Type(key) != IntType {
		return 0, keyError(key, ErrKeyNotFound)
	}
	v, code := s.raw.GetInt(key)
	if s.h.convention.Normalize(code) == Failed {
		return 0, keyError(key, ErrKeyNotFound)
	}
	return v, nil
}

// GetStr reads a string key. It fails with ErrUnsupportedOperation when the
// linked library no longer provides string retrieval.
func (s *Settings) GetStr(key string) (string, error) {
	if s.raw.Type(key) != StrType {
		return "", keyError(key, ErrKeyNotFound)
	}
	getter, ok := s.raw.(StrGetter)
	if !ok {
		return "", keyError(key, ErrUnsupportedOperation)
	}
	v, code := getter.GetStr(key)
	if s.h.convention.Normalize(code) == Failed {
		return "", keyError(key, ErrKeyNotFound)
	}
	return v, nil
}

// Set writes value to key after coercing it to the key's kind.
func (s *Settings) Set(key string, value any) error {
	var code int
	switch s.raw.Type(key) {
	case StrType:
		code = s.raw.SetStr(key, stringForm(value))
	case NumType:
		code = s.raw.SetNum(key, CoerceFloat(value))
	case IntType:
		code = s.raw.SetInt(key, CoerceInt(value))
	default:
		return keyError(key, ErrKeyNotFound)
	}
	if s.h.convention.Normalize(code) == Failed {
		return keyError(key, ErrRejectedValue)
	}
	return nil
}

// SetQuality writes chorus, reverb and sample rate for the preset in one call.
// The preset is remembered even when one of the writes fails.
func (s *Settings) SetQuality(q Quality) error {
	values, ok := qualityTable[q]
	if !ok {
		return fmt.Errorf("unknown quality preset %q", string(q))
	}
	s.quality = q
	if err := s.Set(KeyChorusActive, values.chorus); err != nil {
		return err
	}
	if err := s.Set(KeyReverbActive, values.reverb); err != nil {
		return err
	}
	return s.Set(KeySampleRate, values.sampleRate)
}

// Quality returns the preset last passed to SetQuality. It is not derived from
// the current values of the three keys, which may have been changed since.
func (s *Settings) Quality() Quality {
	return s.quality
}

// Close deletes the settings table.
func (s *Settings) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.raw.Delete()
	return nil
}
