// Package ipc implements the control surface from spec §6: a
// request/response protocol (Hello, ListGroups, StartInjection,
// StopInjection, Autoload, SetConfigDir) consumed by a CLI or a GUI
// process that may run outside the daemon's session. Transport is
// gorilla/websocket, framing the same {"type": ..., "data": ...} request
// and {"status": ...} response envelope
// nikoskalogridis-streamerbrainz/ipc.go uses for its own line-JSON
// control channel, chosen over a plain socket because the two ends here
// are explicitly meant to run as separate processes.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Envelope is one request frame: {"type": "...", "data": {...}}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is one reply frame: {"status": "ok"|"error", "data": {...}}.
type Response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// GroupInfo is one ListGroups entry (spec §6).
type GroupInfo struct {
	GroupKey        string   `json:"group_key"`
	HumanName       string   `json:"human_name"`
	SubDevicePaths  []string `json:"sub_device_paths"`
}

// Backend is the business logic the control surface drives; a concrete
// implementation wires internal/supervisor, internal/device and
// internal/presetstore together. Kept as an interface so this package
// has no dependency on any of those and is testable with a fake.
type Backend interface {
	ListGroups() ([]GroupInfo, error)
	StartInjection(groupKey, presetName string) error
	StopInjection(groupKey string) error
	Autoload(configDir string) error
	SetConfigDir(path string)
}

// Server upgrades HTTP connections to websockets and dispatches each
// frame received on them to Backend, one frame at a time per connection
// (spec §6's operations are all synchronous request/response, unlike
// streamerbrainz's own fire-and-forget broadcast use of the same
// library).
type Server struct {
	log      *slog.Logger
	backend  Backend
	upgrader websocket.Upgrader
}

// NewServer builds a Server bound to backend.
func NewServer(log *slog.Logger, backend Backend) *Server {
	return &Server{
		log:     log,
		backend: backend,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The control surface is consumed by a local CLI/GUI, not a
			// browser; accept any origin the same way vkvm's local-network
			// websocket server does.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and services requests on it until the
// client disconnects or sends a close frame.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ipc: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn("ipc: read error", "error", err)
			}
			return
		}

		resp := s.dispatch(env)
		if err := conn.WriteJSON(resp); err != nil {
			s.log.Warn("ipc: write error", "error", err)
			return
		}
	}
}

// ListenAndServe runs an HTTP server on addr whose only route upgrades to
// this Server, blocking until ctx is cancelled (the same
// context-cancels-the-listener shutdown shape
// streamerbrainz/cmd/streamerbrainz/ipc.go's runIPCServer uses).
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.ServeHTTP)
	httpSrv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = httpSrv.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) dispatch(env Envelope) Response {
	switch env.Type {
	case "Hello":
		return ok(nil)

	case "ListGroups":
		groups, err := s.backend.ListGroups()
		if err != nil {
			return fail(err)
		}
		return ok(groups)

	case "StartInjection":
		var req struct {
			GroupKey   string `json:"group_key"`
			PresetName string `json:"preset_name"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return fail(fmt.Errorf("decode StartInjection request: %w", err))
		}
		if err := s.backend.StartInjection(req.GroupKey, req.PresetName); err != nil {
			return rejected(err)
		}
		return ok(struct {
			Accepted bool `json:"accepted"`
		}{true})

	case "StopInjection":
		var req struct {
			GroupKey string `json:"group_key"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return fail(fmt.Errorf("decode StopInjection request: %w", err))
		}
		if err := s.backend.StopInjection(req.GroupKey); err != nil {
			return fail(err)
		}
		return ok(nil)

	case "Autoload":
		var req struct {
			ConfigDir string `json:"config_dir"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return fail(fmt.Errorf("decode Autoload request: %w", err))
		}
		if err := s.backend.Autoload(req.ConfigDir); err != nil {
			return fail(err)
		}
		return ok(nil)

	case "SetConfigDir":
		var req struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return fail(fmt.Errorf("decode SetConfigDir request: %w", err))
		}
		s.backend.SetConfigDir(req.Path)
		return ok(nil)

	default:
		return fail(fmt.Errorf("unknown request type %q", env.Type))
	}
}

func ok(payload any) Response {
	if payload == nil {
		return Response{Status: "ok"}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Response{Status: "error", Error: fmt.Sprintf("marshal response: %v", err)}
	}
	return Response{Status: "ok", Data: b}
}

func fail(err error) Response {
	return Response{Status: "error", Error: err.Error()}
}

// rejected matches spec §6's StartInjection contract: failures surface as
// {Rejected(reason)} rather than a bare transport error, but on this
// envelope that's still an "error" status with the reason as Error.
func rejected(err error) Response {
	return Response{Status: "error", Error: err.Error()}
}
