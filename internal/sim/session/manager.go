// Package session hosts live game sessions behind the transport. Each
// session serializes its turns with a mutex; watchers get the fresh
// state after every accepted action.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"chronocube.game/internal/protocol"
	"chronocube.game/internal/sim/content"
	"chronocube.game/internal/sim/game"
	"chronocube.game/internal/sim/rift"
	"chronocube.game/internal/sim/spacetime"
)

// Sink receives every committed turn. Implementations must not block;
// the caller holds the session lock.
type Sink interface {
	OnTurn(sessionID string, rec game.TurnRecord, st *game.State)
}

type Session struct {
	ID string

	mu       sync.Mutex
	st       *game.State
	watchers map[uint64]chan []byte
	nextW    uint64
}

// Config carries the operational knobs the manager applies to every
// session it hosts.
type Config struct {
	// ProtocolVersion is stamped on every outgoing message and is what
	// the transport checks HELLO/ACT against. Empty means the built-in
	// protocol version.
	ProtocolVersion string

	// HistoryLimit caps the turn records each session retains in
	// memory. Zero means unlimited.
	HistoryLimit int
}

type Manager struct {
	pack *content.Pack
	sink Sink
	cfg  Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(pack *content.Pack, sink Sink, cfg Config) *Manager {
	if cfg.ProtocolVersion == "" {
		cfg.ProtocolVersion = protocol.Version
	}
	return &Manager{
		pack:     pack,
		sink:     sink,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// ProtocolVersion is the version this manager speaks.
func (m *Manager) ProtocolVersion() string { return m.cfg.ProtocolVersion }

func (m *Manager) Create() (*Session, error) {
	st, err := game.New(m.pack)
	if err != nil {
		return nil, err
	}
	st.SetHistoryLimit(m.cfg.HistoryLimit)
	sess := &Session{
		ID:       newSessionID(),
		st:       st,
		watchers: make(map[uint64]chan []byte),
	}
	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	return sess, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Welcome builds the post-handshake description of this session.
func (m *Manager) Welcome(sess *Session) protocol.WelcomeMsg {
	lvl := m.pack.Level
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: m.cfg.ProtocolVersion,
		SessionID:       sess.ID,
		LevelParams: protocol.LevelParams{
			LevelID:   lvl.ID,
			LevelName: lvl.Name,
			Width:     lvl.Width,
			Height:    lvl.Height,
			TimeDepth: lvl.TimeDepth,
		},
		Content: protocol.ContentDigests{
			ArchetypesDigest: m.pack.Archetypes.Digest,
			RulesDigest:      m.pack.RulesDigest,
			LevelDigest:      m.pack.LevelDigest,
		},
	}
}

// Apply runs one action through the session's pipeline and returns the
// RESULT plus, on acceptance, the fresh STATE.
func (m *Manager) Apply(sess *Session, actionID string, payload protocol.ActionPayload) (protocol.ResultMsg, *protocol.StateMsg) {
	act, err := buildAction(payload)
	if err != nil {
		sess.mu.Lock()
		res := protocol.ResultMsg{
			Type:            protocol.TypeResult,
			ProtocolVersion: m.cfg.ProtocolVersion,
			ActionID:        actionID,
			Accepted:        false,
			Code:            protocol.ErrBadRequest,
			Message:         err.Error(),
			Turn:            sess.st.Turn(),
			Phase:           string(sess.st.Phase()),
			Status:          sess.st.Status(),
		}
		sess.mu.Unlock()
		return res, nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	rec, err := sess.st.Apply(act)
	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: m.cfg.ProtocolVersion,
		ActionID:        actionID,
		Turn:            sess.st.Turn(),
		Phase:           string(sess.st.Phase()),
		Status:          sess.st.Status(),
	}
	if err != nil {
		var ae *game.ActionError
		if errors.As(err, &ae) {
			res.Code = ae.Code
			res.Message = ae.Message
		} else {
			res.Code = protocol.ErrInternal
			res.Message = err.Error()
		}
		return res, nil
	}

	res.Accepted = true
	if m.sink != nil {
		m.sink.OnTurn(sess.ID, rec, sess.st)
	}

	state := m.stateMsgLocked(sess)
	sess.broadcastLocked(state)
	return res, state
}

// StateMsg returns the current state without applying anything.
func (m *Manager) StateMsg(sess *Session) *protocol.StateMsg {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return m.stateMsgLocked(sess)
}

func (m *Manager) stateMsgLocked(sess *Session) *protocol.StateMsg {
	view := sess.st.View()
	view.SessionID = sess.ID
	return &protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: m.cfg.ProtocolVersion,
		State:           view,
	}
}

// Watch registers a state feed. The returned channel drops frames when
// the watcher lags.
func (sess *Session) Watch() (id uint64, ch chan []byte) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.nextW++
	id = sess.nextW
	ch = make(chan []byte, 16)
	sess.watchers[id] = ch
	return id, ch
}

func (sess *Session) Unwatch(id uint64) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if ch, ok := sess.watchers[id]; ok {
		delete(sess.watchers, id)
		close(ch)
	}
}

func (sess *Session) broadcastLocked(state *protocol.StateMsg) {
	if len(sess.watchers) == 0 {
		return
	}
	b, err := json.Marshal(state)
	if err != nil {
		return
	}
	for _, ch := range sess.watchers {
		select {
		case ch <- b:
		default:
		}
	}
}

func buildAction(p protocol.ActionPayload) (game.Action, error) {
	a := game.Action{Kind: game.ActionKind(p.Kind)}
	if p.Dir != "" {
		a.Dir = spacetime.Dir(p.Dir)
	}
	if p.Rift != nil {
		instr := &rift.Instruction{Mode: rift.Mode(p.Rift.Mode)}
		switch instr.Mode {
		case rift.ModeDefault, "":
			instr.Mode = rift.ModeDefault
		case rift.ModeDelta:
			instr.Delta = p.Rift.Delta
			if p.Rift.Spatial != nil {
				instr.Spatial = &spacetime.Pos2{X: p.Rift.Spatial.X, Y: p.Rift.Spatial.Y}
			}
		case rift.ModeTunnel:
			if p.Rift.Target == nil {
				return game.Action{}, fmt.Errorf("rift mode TUNNEL requires a target")
			}
			instr.Target = spacetime.Pos3{X: p.Rift.Target.X, Y: p.Rift.Target.Y, T: p.Rift.Target.T}
		default:
			return game.Action{}, fmt.Errorf("unknown rift mode %q", p.Rift.Mode)
		}
		a.Rift = instr
	}
	return a, nil
}

func newSessionID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return "S" + hex.EncodeToString(b[:])
}
