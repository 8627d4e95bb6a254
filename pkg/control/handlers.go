package control

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zurustar/gofluid/pkg/jukebox"
)

const maxBodySize = 4 << 10

// RepeatRequest is the body of PUT /repeat.
type RepeatRequest struct {
	Count *int `json:"count"`
}

// TempoRequest is the body of PUT /tempo. At most one field may be set; {}
// returns to the tempo of the MIDI file.
type TempoRequest struct {
	BPM       *int `json:"bpm"`
	MIDITempo *int `json:"midi_tempo"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"playlist": s.jb.Playlist()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.jb.Status())
}

func (s *Server) handleGetTempo(w http.ResponseWriter, r *http.Request) {
	tempo, ok, err := s.jb.Tempo()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no player"})
		return
	}
	s.writeJSON(w, http.StatusOK, tempo)
}

func (s *Server) handleTransport(action func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := action(); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, s.jb.Status())
	}
}

func (s *Server) handleRepeat(w http.ResponseWriter, r *http.Request) {
	var req RepeatRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Count == nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "count is required"})
		return
	}
	if err := s.jb.SetRepeat(*req.Count); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.jb.Status())
}

func (s *Server) handlePutTempo(w http.ResponseWriter, r *http.Request) {
	var req TempoRequest
	if !s.decode(w, r, &req) {
		return
	}
	var err error
	switch {
	case req.BPM != nil && req.MIDITempo != nil:
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "set either bpm or midi_tempo"})
		return
	case req.MIDITempo != nil:
		err = s.jb.SetMIDITempo(req.MIDITempo)
	default:
		err = s.jb.SetTempoBPM(req.BPM)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.jb.Status())
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, jukebox.ErrInvalidRepeat), errors.Is(err, jukebox.ErrInvalidTempo):
		status = http.StatusBadRequest
	case errors.Is(err, jukebox.ErrEmptyPlaylist):
		status = http.StatusConflict
	default:
		s.logger.Error("control request failed", "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
