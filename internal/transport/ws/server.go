// Package ws exposes sessions over websockets: /v1/play runs the
// HELLO/ACT loop for one session, /v1/watch streams read-only state
// frames, and /v1/state serves a one-shot JSON view.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"chronocube.game/internal/protocol"
	"chronocube.game/internal/sim/session"
)

type Server struct {
	sessions *session.Manager
	log      *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(m *session.Manager, logger *log.Logger) *Server {
	return &Server{
		sessions: m,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// PlayHandler runs one session per connection: HELLO -> WELCOME+STATE,
// then ACT -> RESULT(+STATE) until the client hangs up.
func (s *Server) PlayHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}
		defer s.sessions.Remove(sess.ID)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				s.writeError(conn, protocol.ErrProtoBadRequest, "undecodable message")
				continue
			}
			if base.Type != protocol.TypeAct {
				s.writeError(conn, protocol.ErrProtoBadRequest, "expected ACT")
				continue
			}
			var act protocol.ActMsg
			if err := json.Unmarshal(msg, &act); err != nil {
				s.writeError(conn, protocol.ErrProtoBadRequest, "malformed ACT")
				continue
			}
			if act.ProtocolVersion != s.sessions.ProtocolVersion() {
				s.writeError(conn, protocol.ErrProtoBadRequest, "bad protocol_version")
				continue
			}

			res, state := s.sessions.Apply(sess, act.ActionID, act.Action)
			if err := writeJSON(conn, res); err != nil {
				break
			}
			if state != nil {
				if err := writeJSON(conn, state); err != nil {
					break
				}
			}
		}

		if s.log != nil {
			s.log.Printf("session %s disconnected", sess.ID)
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) *session.Session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != s.sessions.ProtocolVersion() {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}

	sess, err := s.sessions.Create()
	if err != nil {
		s.writeError(conn, protocol.ErrInternal, err.Error())
		return nil
	}

	if err := writeJSON(conn, s.sessions.Welcome(sess)); err != nil {
		s.sessions.Remove(sess.ID)
		return nil
	}
	if err := writeJSON(conn, s.sessions.StateMsg(sess)); err != nil {
		s.sessions.Remove(sess.ID)
		return nil
	}

	if s.log != nil {
		name := hello.ClientName
		if name == "" {
			name = "client"
		}
		s.log.Printf("session %s started for %s", sess.ID, name)
	}
	return sess
}

// WatchHandler streams state frames for an existing session. Loopback
// only; watchers never act.
func (s *Server) WatchHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		sess, ok := s.sessions.Get(r.URL.Query().Get("session"))
		if !ok {
			http.Error(rw, "unknown session", http.StatusNotFound)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, feed := sess.Watch()
		defer sess.Unwatch(id)

		// Current state first so a late watcher is not blind until the
		// next action.
		if err := writeJSON(conn, s.sessions.StateMsg(sess)); err != nil {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Reader drains control frames and detects hangup.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-feed:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}

// StateHandler serves GET /v1/state?session=ID as plain JSON.
func (s *Server) StateHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sess, ok := s.sessions.Get(r.URL.Query().Get("session"))
		if !ok {
			http.Error(rw, "unknown session", http.StatusNotFound)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.sessions.StateMsg(sess).State)
	}
}

func (s *Server) writeError(conn *websocket.Conn, code, msg string) {
	_ = writeJSON(conn, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: s.sessions.ProtocolVersion(),
		Code:            code,
		Message:         msg,
	})
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
