package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	groups        []GroupInfo
	startErr      error
	stopErr       error
	autoloadErr   error
	startedGroup  string
	startedPreset string
	stoppedGroup  string
	configDir     string
	autoloadDir   string
}

func (f *fakeBackend) ListGroups() ([]GroupInfo, error) { return f.groups, nil }

func (f *fakeBackend) StartInjection(groupKey, presetName string) error {
	f.startedGroup = groupKey
	f.startedPreset = presetName
	return f.startErr
}

func (f *fakeBackend) StopInjection(groupKey string) error {
	f.stoppedGroup = groupKey
	return f.stopErr
}

func (f *fakeBackend) Autoload(configDir string) error {
	f.autoloadDir = configDir
	return f.autoloadErr
}

func (f *fakeBackend) SetConfigDir(path string) { f.configDir = path }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchHelloReturnsOk(t *testing.T) {
	s := NewServer(testLogger(), &fakeBackend{})
	resp := s.dispatch(Envelope{Type: "Hello"})
	assert.Equal(t, "ok", resp.Status)
}

func TestDispatchListGroupsReturnsBackendData(t *testing.T) {
	backend := &fakeBackend{groups: []GroupInfo{{GroupKey: "g1", HumanName: "Keyboard", SubDevicePaths: []string{"/dev/input/event3"}}}}
	s := NewServer(testLogger(), backend)

	resp := s.dispatch(Envelope{Type: "ListGroups"})
	require.Equal(t, "ok", resp.Status)

	var groups []GroupInfo
	require.NoError(t, json.Unmarshal(resp.Data, &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "g1", groups[0].GroupKey)
	assert.Equal(t, "Keyboard", groups[0].HumanName)
}

func TestDispatchStartInjectionForwardsFieldsToBackend(t *testing.T) {
	backend := &fakeBackend{}
	s := NewServer(testLogger(), backend)

	resp := s.dispatch(Envelope{Type: "StartInjection", Data: json.RawMessage(`{"group_key":"g1","preset_name":"default"}`)})
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "g1", backend.startedGroup)
	assert.Equal(t, "default", backend.startedPreset)
}

func TestDispatchStartInjectionRejectionSurfacesReason(t *testing.T) {
	backend := &fakeBackend{startErr: errors.New("no devices found")}
	s := NewServer(testLogger(), backend)

	resp := s.dispatch(Envelope{Type: "StartInjection", Data: json.RawMessage(`{"group_key":"g1","preset_name":"default"}`)})
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "no devices found", resp.Error)
}

func TestDispatchStopInjectionForwardsGroupKey(t *testing.T) {
	backend := &fakeBackend{}
	s := NewServer(testLogger(), backend)

	resp := s.dispatch(Envelope{Type: "StopInjection", Data: json.RawMessage(`{"group_key":"g1"}`)})
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "g1", backend.stoppedGroup)
}

func TestDispatchAutoloadForwardsConfigDir(t *testing.T) {
	backend := &fakeBackend{}
	s := NewServer(testLogger(), backend)

	resp := s.dispatch(Envelope{Type: "Autoload", Data: json.RawMessage(`{"config_dir":"/tmp/x"}`)})
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "/tmp/x", backend.autoloadDir)
}

func TestDispatchSetConfigDirUpdatesBackend(t *testing.T) {
	backend := &fakeBackend{}
	s := NewServer(testLogger(), backend)

	resp := s.dispatch(Envelope{Type: "SetConfigDir", Data: json.RawMessage(`{"path":"/tmp/y"}`)})
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "/tmp/y", backend.configDir)
}

func TestDispatchUnknownTypeReturnsError(t *testing.T) {
	s := NewServer(testLogger(), &fakeBackend{})
	resp := s.dispatch(Envelope{Type: "Bogus"})
	assert.Equal(t, "error", resp.Status)
}

func TestDispatchMalformedDataReturnsError(t *testing.T) {
	s := NewServer(testLogger(), &fakeBackend{})
	resp := s.dispatch(Envelope{Type: "StartInjection", Data: json.RawMessage(`not json`)})
	assert.Equal(t, "error", resp.Status)
}

func TestServeHTTPRoundTripsOverWebsocket(t *testing.T) {
	backend := &fakeBackend{groups: []GroupInfo{{GroupKey: "g1", HumanName: "Keyboard"}}}
	s := NewServer(testLogger(), backend)

	srv := httptest.NewServer(s)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Envelope{Type: "ListGroups"}))
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "ok", resp.Status)

	var groups []GroupInfo
	require.NoError(t, json.Unmarshal(resp.Data, &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "g1", groups[0].GroupKey)
}

func TestListenAndServeReturnsWhenContextCancelled(t *testing.T) {
	s := NewServer(testLogger(), &fakeBackend{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not return after context cancellation")
	}
}
