package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	LevelParams     LevelParams    `json:"level_params"`
	Content         ContentDigests `json:"content"`
}

type LevelParams struct {
	LevelID   string `json:"level_id"`
	LevelName string `json:"level_name,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	TimeDepth int    `json:"time_depth"`
}

// ContentDigests lets a client verify it renders the same pack the
// server simulates.
type ContentDigests struct {
	ArchetypesDigest string `json:"archetypes_digest"`
	RulesDigest      string `json:"rules_digest"`
	LevelDigest      string `json:"level_digest"`
}

// ACT (client -> server)
type ActMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	ActionID        string        `json:"action_id,omitempty"`
	Action          ActionPayload `json:"action"`
}

// ActionPayload names one interaction. Kind is MOVE, WAIT, PUSH, PULL,
// RIFT, or RESTART; Dir is required for MOVE, PUSH, and PULL.
type ActionPayload struct {
	Kind string       `json:"kind"`
	Dir  string       `json:"dir,omitempty"`
	Rift *RiftPayload `json:"rift,omitempty"`
}

// RiftPayload mirrors the rift instruction. Absent means the default
// backward jump.
type RiftPayload struct {
	Mode    string   `json:"mode"`
	Delta   int      `json:"delta,omitempty"`
	Spatial *CellRef `json:"spatial,omitempty"`
	Target  *Pos3Ref `json:"target,omitempty"`
}

type CellRef struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Pos3Ref struct {
	X int `json:"x"`
	Y int `json:"y"`
	T int `json:"t"`
}

// RESULT (server -> client): the verdict on one ACT.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ActionID        string `json:"action_id,omitempty"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Turn            int    `json:"turn"`
	Phase           string `json:"phase"`
	Status          string `json:"status,omitempty"`
}

// STATE (server -> client): pushed after every accepted action.
type StateMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	State           StateView `json:"state"`
}

// ERROR (server -> client): protocol-level failure outside any action.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
