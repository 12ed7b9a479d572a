// Package tuning loads operational knobs that are deployment concerns
// rather than game rules: protocol version, persistence cadence, and
// history limits.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	SnapshotEveryTurns int  `yaml:"snapshot_every_turns"`
	TurnLogEnabled     bool `yaml:"turn_log_enabled"`
	HistoryLimit       int  `yaml:"history_limit"`
}

func (t *Tuning) applyDefaults() {
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = "1.0"
	}
	if t.SnapshotEveryTurns <= 0 {
		t.SnapshotEveryTurns = 25
	}
	if t.HistoryLimit <= 0 {
		t.HistoryLimit = 1000
	}
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	return t, nil
}

// Default returns the tuning used when no file is supplied.
func Default() Tuning {
	var t Tuning
	t.applyDefaults()
	t.TurnLogEnabled = true
	return t
}
