package server

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"noisewarn/config"
	"noisewarn/log"
	"noisewarn/monitor"
)

// Controller is the part of the application the server may read and change.
type Controller interface {
	Settings() config.Settings
	ApplyUpdate(u config.Update) (config.Settings, error)
}

// Command is a request from a websocket client.
type Command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// RemoteUpdate is the part of the settings a websocket client may change.
// File paths, the capture device and the overlay monitor stay local.
type RemoteUpdate struct {
	Threshold *int     `json:"threshold,omitempty"`
	Window    *float64 `json:"window,omitempty"`
	Volume    *int     `json:"volume,omitempty"`
	Sound     *bool    `json:"sound,omitempty"`
	Overlay   *bool    `json:"overlay,omitempty"`
	Repeat    *bool    `json:"repeat,omitempty"`
}

func (r RemoteUpdate) Update() config.Update {
	return config.Update{
		Threshold: r.Threshold,
		Window:    r.Window,
		Volume:    r.Volume,
		Sound:     r.Sound,
		Overlay:   r.Overlay,
		Repeat:    r.Repeat,
	}
}

func decodeRemoteUpdate(data []byte) (RemoteUpdate, error) {
	var u RemoteUpdate
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err := dec.Decode(&u)
	return u, err
}

type Server struct {
	hub   *Hub
	ctrl  Controller
	http  *http.Server
	ln    net.Listener
	token string
}

func New(ctrl Controller) *Server {
	s := &Server{hub: NewHub(), ctrl: ctrl}
	s.http = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.requireToken(s.handleWebSocket))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// SetToken makes /ws require token, given as a "token" query parameter or a
// bearer Authorization header. An empty token disables the check.
func (s *Server) SetToken(token string) { s.token = token }

func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next(w, r)
			return
		}
		got := r.URL.Query().Get("token")
		if got == "" {
			got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			log.Warnf("rejected websocket client %s: bad token", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// IsLoopback reports whether a listen address only accepts local
// connections. An empty host (":9100") binds every interface.
func IsLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.ln = ln
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http server: %v", err)
		}
	}()
	log.Infof("serving /metrics and /ws on %s", ln.Addr())
	return nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	return s.http.Shutdown(ctx)
}

// PublishSnapshot forwards a level snapshot to every websocket client.
func (s *Server) PublishSnapshot(snap monitor.Snapshot) {
	s.hub.Broadcast(Message{Type: "level", Data: snap})
}

// PublishSettings tells clients the settings changed.
func (s *Server) PublishSettings(st config.Settings) {
	s.hub.Broadcast(Message{Type: "settings", Data: st})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	c := s.hub.add()
	s.hub.sendTo(c, Message{Type: "settings", Data: s.ctrl.Settings()})

	go runWriter(conn, c.send)
	s.runReader(conn, c)
}

// runWriter is the only goroutine that writes to conn.
func runWriter(conn *websocket.Conn, send <-chan any) {
	defer conn.Close()
	for msg := range send {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
}

func (s *Server) runReader(conn *websocket.Conn, c *client) {
	defer s.hub.remove(c)
	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.hub.sendTo(c, s.handle(cmd))
	}
}

func (s *Server) handle(cmd Command) Message {
	switch cmd.Type {
	case "settings/get":
		return Message{Type: "settings", Data: s.ctrl.Settings()}
	case "settings/update":
		u, err := decodeRemoteUpdate(cmd.Data)
		if err != nil {
			return Message{Type: "error", Error: fmt.Sprintf("invalid settings/update: %v", err)}
		}
		st, err := s.ctrl.ApplyUpdate(u.Update())
		if err != nil {
			var verr *config.ValidationError
			if errors.As(err, &verr) {
				return Message{Type: "error", Error: verr}
			}
			return Message{Type: "error", Error: err.Error()}
		}
		return Message{Type: "settings", Data: st}
	}
	return Message{Type: "error", Error: fmt.Sprintf("unknown command %q", cmd.Type)}
}
