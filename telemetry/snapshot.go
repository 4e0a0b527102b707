package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot records a population at the end of a generation.
type Snapshot struct {
	Version    int    `json:"version"`
	Seed       uint64 `json:"seed"`
	Dimension  int    `json:"dimension"`
	Generation int    `json:"generation"`

	SurvivalRatio float64 `json:"survival_ratio"`

	Agents []AgentState `json:"agents"`
}

// AgentState is one agent's position and genome.
type AgentState struct {
	ID          uint32 `json:"id"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Fingerprint uint32 `json:"fingerprint"`
	Genes       int    `json:"genes"`
	Description string `json:"description"`
}

// SaveSnapshot writes snapshot to dir and returns the file path.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}

	filename := fmt.Sprintf("snapshot_gen_%d.json", snapshot.Generation)
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot written by SaveSnapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d (expected %d)", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
