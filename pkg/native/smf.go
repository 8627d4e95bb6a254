package native

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// ErrInvalidMIDI is returned for data that is not a standard MIDI file.
var ErrInvalidMIDI = errors.New("invalid MIDI file")

// defaultMicrosPerBeat is 120 beats per minute.
const defaultMicrosPerBeat = 500000

// Meta event types.
const (
	metaText      = 0x01
	metaTrackName = 0x03
	metaEndTrack  = 0x2F
	metaTempo     = 0x51
)

// midiEvent is one event of a merged file. Meta events have status 0xFF.
type midiEvent struct {
	Tick   int
	Track  int
	Status byte
	Data1  byte
	Data2  byte
	Meta   byte
	Data   []byte
}

func (e midiEvent) channel() int {
	return int(e.Status & 0x0F)
}

func (e midiEvent) command() byte {
	return e.Status & 0xF0
}

// tempoChange is a tempo meta event.
type tempoChange struct {
	Tick          int
	MicrosPerBeat int
}

// midiFile is a parsed standard MIDI file with all tracks merged.
type midiFile struct {
	Format     int
	Division   int
	Tracks     int
	Events     []midiEvent
	Tempos     []tempoChange
	TrackNames []string
	Texts      []string
	TotalTicks int
}

// parseSMF parses a format 0 or 1 standard MIDI file. Track names and text
// events are decoded with the named encoding ("utf-8", "shift_jis" or
// "latin1").
func parseSMF(data []byte, textEncoding string) (*midiFile, error) {
	if len(data) < 14 || string(data[0:4]) != "MThd" {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidMIDI)
	}
	headerLen := int(binary.BigEndian.Uint32(data[4:8]))
	if headerLen < 6 || 8+headerLen > len(data) {
		return nil, fmt.Errorf("%w: bad header length %d", ErrInvalidMIDI, headerLen)
	}
	mf := &midiFile{
		Format:   int(binary.BigEndian.Uint16(data[8:10])),
		Tracks:   int(binary.BigEndian.Uint16(data[10:12])),
		Division: int(binary.BigEndian.Uint16(data[12:14])),
	}
	if mf.Format > 1 {
		return nil, fmt.Errorf("%w: unsupported format %d", ErrInvalidMIDI, mf.Format)
	}
	if mf.Division&0x8000 != 0 || mf.Division == 0 {
		return nil, fmt.Errorf("%w: SMPTE or zero division not supported", ErrInvalidMIDI)
	}

	dec := textDecoder(textEncoding)
	offset := 8 + headerLen
	for track := 0; track < mf.Tracks; track++ {
		if offset+8 > len(data) || string(data[offset:offset+4]) != "MTrk" {
			return nil, fmt.Errorf("%w: track %d missing", ErrInvalidMIDI, track)
		}
		trackLen := int(binary.BigEndian.Uint32(data[offset+4 : offset+8]))
		end := offset + 8 + trackLen
		if end > len(data) {
			return nil, fmt.Errorf("%w: track %d truncated", ErrInvalidMIDI, track)
		}
		if err := mf.parseTrack(data[offset+8:end], track, dec); err != nil {
			return nil, err
		}
		offset = end
	}

	// stable by track for equal ticks
	sort.SliceStable(mf.Events, func(i, j int) bool {
		return mf.Events[i].Tick < mf.Events[j].Tick
	})
	sort.SliceStable(mf.Tempos, func(i, j int) bool {
		return mf.Tempos[i].Tick < mf.Tempos[j].Tick
	})
	if len(mf.Tempos) == 0 || mf.Tempos[0].Tick > 0 {
		mf.Tempos = append([]tempoChange{{Tick: 0, MicrosPerBeat: defaultMicrosPerBeat}}, mf.Tempos...)
	}
	return mf, nil
}

func (mf *midiFile) parseTrack(data []byte, track int, dec *encoding.Decoder) error {
	pos := 0
	tick := 0
	var running byte
	name := ""
	for pos < len(data) {
		delta, n := readVarLen(data[pos:])
		if n == 0 {
			return fmt.Errorf("%w: track %d: bad delta time", ErrInvalidMIDI, track)
		}
		pos += n
		tick += delta
		if pos >= len(data) {
			break
		}

		status := data[pos]
		if status < 0x80 {
			if running == 0 {
				return fmt.Errorf("%w: track %d: running status without status", ErrInvalidMIDI, track)
			}
			status = running
		} else {
			pos++
			if status < 0xF0 {
				running = status
			}
		}

		switch {
		case status == 0xFF:
			if pos >= len(data) {
				return fmt.Errorf("%w: track %d: truncated meta event", ErrInvalidMIDI, track)
			}
			meta := data[pos]
			pos++
			length, n := readVarLen(data[pos:])
			pos += n
			if pos+length > len(data) {
				return fmt.Errorf("%w: track %d: truncated meta event", ErrInvalidMIDI, track)
			}
			body := data[pos : pos+length]
			pos += length
			switch meta {
			case metaTempo:
				if length == 3 {
					micros := int(body[0])<<16 | int(body[1])<<8 | int(body[2])
					if micros > 0 {
						mf.Tempos = append(mf.Tempos, tempoChange{Tick: tick, MicrosPerBeat: micros})
					}
				}
			case metaTrackName:
				if name == "" {
					name = decodeText(dec, body)
				}
			case metaText:
				mf.Texts = append(mf.Texts, decodeText(dec, body))
			}
			mf.Events = append(mf.Events, midiEvent{Tick: tick, Track: track, Status: 0xFF, Meta: meta, Data: body})
			if meta == metaEndTrack {
				pos = len(data)
			}
		case status == 0xF0 || status == 0xF7:
			length, n := readVarLen(data[pos:])
			pos += n + length
		case status >= 0x80:
			size := 2
			if cmd := status & 0xF0; cmd == 0xC0 || cmd == 0xD0 {
				size = 1
			}
			if pos+size > len(data) {
				return fmt.Errorf("%w: track %d: truncated channel message", ErrInvalidMIDI, track)
			}
			ev := midiEvent{Tick: tick, Track: track, Status: status, Data1: data[pos]}
			if size == 2 {
				ev.Data2 = data[pos+1]
			}
			pos += size
			mf.Events = append(mf.Events, ev)
		}
	}
	mf.TrackNames = append(mf.TrackNames, name)
	if tick > mf.TotalTicks {
		mf.TotalTicks = tick
	}
	return nil
}

// readVarLen decodes a variable-length quantity and returns the value and the
// number of bytes consumed.
func readVarLen(data []byte) (int, int) {
	value := 0
	n := 0
	for i := 0; i < len(data) && i < 4; i++ {
		n++
		value = (value << 7) | int(data[i]&0x7F)
		if data[i]&0x80 == 0 {
			break
		}
	}
	return value, n
}

func textDecoder(name string) *encoding.Decoder {
	switch name {
	case "shift_jis":
		return japanese.ShiftJIS.NewDecoder()
	case "latin1":
		return charmap.ISO8859_1.NewDecoder()
	default:
		return nil
	}
}

func decodeText(dec *encoding.Decoder, b []byte) string {
	if dec == nil {
		if utf8.Valid(b) {
			return string(b)
		}
		dec = charmap.ISO8859_1.NewDecoder()
	}
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// tempoAt returns the tempo in effect at tick.
func (mf *midiFile) tempoAt(tick int) int {
	micros := defaultMicrosPerBeat
	for _, t := range mf.Tempos {
		if t.Tick > tick {
			break
		}
		micros = t.MicrosPerBeat
	}
	return micros
}
