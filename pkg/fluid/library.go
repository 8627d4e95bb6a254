// Package fluid wraps the call surface of a SoundFont synthesis library:
// settings table, synthesizer, sequencer, MIDI file player and audio driver.
//
// The wrapper types forward to a Library implementation. The only logic of
// their own is the settings coercion, the return-code normalization between
// the two major ABI versions of the library, and player bookkeeping.
package fluid

// Raw return codes shared by both major versions for synth, player and
// sequencer calls. Settings calls follow the version dependent Convention.
const (
	CodeOK     = 0
	CodeFailed = -1
)

// SettingType is the kind of a settings key as reported by the library.
type SettingType int

const (
	NoType SettingType = iota - 1
	NumType
	IntType
	StrType
	SetType
)

func (t SettingType) String() string {
	switch t {
	case NumType:
		return "num"
	case IntType:
		return "int"
	case StrType:
		return "str"
	case SetType:
		return "set"
	default:
		return "none"
	}
}

// Library is the call surface consumed by the wrapper layer.
type Library interface {
	Version() (major, minor, micro int)
	NewSettings() RawSettings
	NewSynth(settings RawSettings) (RawSynth, error)
	NewAudioDriver(settings RawSettings, synth RawSynth) (RawAudioDriver, error)
	NewPlayer(synth RawSynth) (RawPlayer, error)
	NewSequencer(useSystemTimer bool) (RawSequencer, error)
}

// RawSettings is a settings table. Getters and setters return raw codes in
// the convention of the library's major version.
type RawSettings interface {
	Type(name string) SettingType
	GetNum(name string) (float64, int)
	GetInt(name string) (int, int)
	SetStr(name, value string) int
	SetNum(name string, value float64) int
	SetInt(name string, value int) int
	Delete()
}

// StrGetter is implemented by settings tables of library versions that still
// provide string retrieval. It was removed in the second major version.
type StrGetter interface {
	GetStr(name string) (string, int)
}

// RawSynth is a synthesizer instance.
type RawSynth interface {
	// SFLoad returns the soundfont id, or a negative code on failure.
	SFLoad(path string, resetPresets bool) int
	NoteOn(channel, key, velocity int) int
	NoteOff(channel, key int) int
	ProgramChange(channel, program int) int
	CC(channel, ctrl, value int) int
	PitchBend(channel, value int) int
	AllNotesOff(channel int) int
	SystemReset() int
	SetGain(gain float64)
	Gain() float64
	Delete()
}

// RawAudioDriver is a running audio output.
type RawAudioDriver interface {
	Delete()
}

// PlayerStatus is the state of a MIDI file player.
type PlayerStatus int

const (
	PlayerReady PlayerStatus = iota
	PlayerPlaying
	PlayerDone
)

func (s PlayerStatus) String() string {
	switch s {
	case PlayerReady:
		return "ready"
	case PlayerPlaying:
		return "playing"
	case PlayerDone:
		return "done"
	default:
		return "unknown"
	}
}

// TempoType selects how a player tempo value is interpreted.
type TempoType int

const (
	// TempoDefault uses the tempo of the MIDI file. The value is ignored on
	// set; on get it is the file tempo in beats per minute.
	TempoDefault TempoType = iota
	// TempoBPM is an external tempo in beats per minute.
	TempoBPM
	// TempoMIDI is an external tempo in microseconds per quarter note.
	TempoMIDI
	// TempoRelative multiplies the MIDI file tempo.
	TempoRelative
)

// Tempo ranges accepted by a player for each external tempo type.
const (
	MinRelativeTempo = 0.001
	MaxRelativeTempo = 1000
	MinTempoBPM      = 1
	MaxTempoBPM      = 60000
	MinMIDITempo     = 1
	MaxMIDITempo     = 60000000
)

// TempoInRange reports whether tempo is accepted for tempoType. TempoDefault
// ignores the value.
func TempoInRange(tempoType TempoType, tempo float64) bool {
	switch tempoType {
	case TempoDefault:
		return true
	case TempoRelative:
		return tempo >= MinRelativeTempo && tempo <= MaxRelativeTempo
	case TempoBPM:
		return tempo >= MinTempoBPM && tempo <= MaxTempoBPM
	case TempoMIDI:
		return tempo >= MinMIDITempo && tempo <= MaxMIDITempo
	default:
		return false
	}
}

func (t TempoType) valid() bool {
	return t >= TempoDefault && t <= TempoRelative
}

func (t TempoType) String() string {
	switch t {
	case TempoDefault:
		return "default"
	case TempoBPM:
		return "bpm"
	case TempoMIDI:
		return "midi"
	case TempoRelative:
		return "relative"
	default:
		return "invalid"
	}
}

// SyncMode reports whether the player follows its own tempo or the MIDI file.
type SyncMode int

const (
	SyncExternal SyncMode = iota
	SyncInternal
)

func (m SyncMode) String() string {
	switch m {
	case SyncExternal:
		return "external"
	case SyncInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// RawPlayer is a MIDI file player bound to a synth.
type RawPlayer interface {
	Add(path string) int
	AddMem(data []byte) int
	Play() int
	Stop() int
	Join() int
	Status() PlayerStatus
	SetLoop(loop int) int
	SetTempo(tempoType TempoType, tempo float64) int
	Tempo(tempoType TempoType) (float64, SyncMode, int)
	Seek(tick int) int
	TotalTicks() int
	CurrentTick() int
	Delete()
}

// TrackNamer is implemented by players that decode MIDI track names.
type TrackNamer interface {
	TrackNames() []string
}

// ClientID identifies a sequencer client. Negative values are invalid.
type ClientID int16

// NoClient is the source id of events not sent by a client.
const NoClient ClientID = -1

// EventCallback receives events addressed to a registered client.
type EventCallback func(tick uint32, ev Event)

// RawSequencer is a tick based event sequencer.
type RawSequencer interface {
	SetTimeScale(ticksPerSecond float64)
	TimeScale() float64
	Tick() uint32
	// RegisterSynth and RegisterClient return a negative id on failure.
	RegisterSynth(synth RawSynth) ClientID
	RegisterClient(name string, callback EventCallback) ClientID
	UnregisterClient(id ClientID)
	ClientName(id ClientID) string
	Send(ev Event, tick uint32, absolute bool) int
	Delete()
}
