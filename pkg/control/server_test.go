package control

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zurustar/gofluid/pkg/fluid"
	"github.com/zurustar/gofluid/pkg/fluid/fluidtest"
	"github.com/zurustar/gofluid/pkg/jukebox"
)

func newTestServer(t *testing.T, files ...string) (*Server, *fluidtest.Library) {
	t.Helper()
	lib := fluidtest.New(2)
	h := fluid.NewHandle(lib)
	settings, err := fluid.NewSettings(h)
	require.NoError(t, err)
	synth, err := fluid.NewSynth(h, settings)
	require.NoError(t, err)

	jb := jukebox.New(h, synth, jukebox.WithReleaseDelay(0))
	jb.AddFiles(files...)
	t.Cleanup(func() {
		jb.Close()
		synth.Close()
		settings.Close()
	})
	return New(jb, Config{}), lib
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) jukebox.Status {
	t.Helper()
	var st jukebox.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPlaylist(t *testing.T) {
	s, _ := newTestServer(t, "a.mid", "b.mid")
	rec := do(t, s, http.MethodGet, "/playlist", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"playlist":["a.mid","b.mid"]}`, rec.Body.String())
}

func TestTransport(t *testing.T) {
	s, lib := newTestServer(t, "a.mid")

	rec := do(t, s, http.MethodPost, "/play", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, jukebox.StatePlaying, decodeStatus(t, rec).State)

	rec = do(t, s, http.MethodPost, "/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, jukebox.StatePaused, decodeStatus(t, rec).State)

	rec = do(t, s, http.MethodPost, "/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, jukebox.StateStopped, decodeStatus(t, rec).State)
	assert.True(t, lib.Players()[0].Deleted())

	rec = do(t, s, http.MethodGet, "/status", "")
	assert.Equal(t, jukebox.StateStopped, decodeStatus(t, rec).State)
}

func TestPlayEmptyPlaylistConflicts(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/play", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRepeat(t *testing.T) {
	s, _ := newTestServer(t, "a.mid")

	rec := do(t, s, http.MethodPut, "/repeat", `{"count":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decodeStatus(t, rec).Repeat)

	for _, body := range []string{`{"count":0}`, `{"count":-2}`, `{}`, `not json`} {
		rec = do(t, s, http.MethodPut, "/repeat", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestTempo(t *testing.T) {
	s, _ := newTestServer(t, "a.mid")

	rec := do(t, s, http.MethodGet, "/tempo", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPut, "/tempo", `{"bpm":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, decodeStatus(t, rec).TempoBPM)

	do(t, s, http.MethodPost, "/play", "")
	rec = do(t, s, http.MethodGet, "/tempo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tempo jukebox.Tempo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tempo))
	assert.InDelta(t, 60, tempo.BPM, 1e-9)
	assert.Equal(t, "external", tempo.SyncMode)

	rec = do(t, s, http.MethodPut, "/tempo", `{"bpm":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, s, http.MethodPut, "/tempo", `{"bpm":60,"midi_tempo":500000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPut, "/tempo", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeStatus(t, rec)
	assert.Nil(t, st.TempoBPM)
	assert.Nil(t, st.MIDITempo)
}

func TestTempoOutOfRangeKeepsPlayable(t *testing.T) {
	s, _ := newTestServer(t, "a.mid")

	rec := do(t, s, http.MethodPut, "/tempo", `{"bpm":70000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/play", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decodeStatus(t, rec)
	assert.Equal(t, jukebox.StatePlaying, st.State)
	assert.Nil(t, st.TempoBPM)
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/nope", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodGet, "/play", "").Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
