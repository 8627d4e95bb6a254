package fluid

import "fmt"

// EventType is the kind of a sequencer message.
type EventType int

const (
	EventNoteOn EventType = iota
	EventNoteOff
	EventNote
	EventTimer
	EventProgramChange
	EventAllNotesOff
)

func (t EventType) String() string {
	switch t {
	case EventNoteOn:
		return "noteon"
	case EventNoteOff:
		return "noteoff"
	case EventNote:
		return "note"
	case EventTimer:
		return "timer"
	case EventProgramChange:
		return "program"
	case EventAllNotesOff:
		return "allnotesoff"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event is a message sent through a sequencer. Build one with NoteOn, NoteOff,
// Note, Timer, ProgramChange or AllNotesOff, then address it with To.
type Event struct {
	Type     EventType
	Source   ClientID
	Dest     ClientID
	Channel  int
	Key      int
	Velocity int
	// Duration in ticks, for EventNote.
	Duration uint32
	// Value is the program number for EventProgramChange.
	Value int
	// Data is opaque user data carried by timer events.
	Data any
}

func newEvent(t EventType) Event {
	return Event{Type: t, Source: NoClient, Dest: NoClient}
}

// NoteOn builds a note-on message.
func NoteOn(channel, key, velocity int) Event {
	ev := newEvent(EventNoteOn)
	ev.Channel, ev.Key, ev.Velocity = channel, key, velocity
	return ev
}

// NoteOff builds a note-off message.
func NoteOff(channel, key int) Event {
	ev := newEvent(EventNoteOff)
	ev.Channel, ev.Key = channel, key
	return ev
}

// Note builds a note-on that is released after duration ticks.
func Note(channel, key, velocity int, duration uint32) Event {
	ev := NoteOn(channel, key, velocity)
	ev.Type = EventNote
	ev.Duration = duration
	return ev
}

// Timer builds an opaque timer message.
func Timer(data any) Event {
	ev := newEvent(EventTimer)
	ev.Data = data
	return ev
}

// ProgramChange builds a program change message.
func ProgramChange(channel, program int) Event {
	ev := newEvent(EventProgramChange)
	ev.Channel, ev.Value = channel, program
	return ev
}

// AllNotesOff builds a message silencing a channel.
func AllNotesOff(channel int) Event {
	ev := newEvent(EventAllNotesOff)
	ev.Channel = channel
	return ev
}

// To returns a copy of the event addressed to dest.
func (ev Event) To(dest ClientID) Event {
	ev.Dest = dest
	return ev
}

// From returns a copy of the event with the given source.
func (ev Event) From(src ClientID) Event {
	ev.Source = src
	return ev
}

func (ev Event) String() string {
	switch ev.Type {
	case EventNoteOn, EventNote:
		return fmt.Sprintf("%s ch=%d key=%d vel=%d dur=%d -> %d", ev.Type, ev.Channel, ev.Key, ev.Velocity, ev.Duration, ev.Dest)
	case EventNoteOff:
		return fmt.Sprintf("%s ch=%d key=%d -> %d", ev.Type, ev.Channel, ev.Key, ev.Dest)
	default:
		return fmt.Sprintf("%s -> %d", ev.Type, ev.Dest)
	}
}
