package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/evolve/config"
)

func TestSnapshotSaveLoad(t *testing.T) {
	dir := t.TempDir()

	snapshot := &Snapshot{
		Version:       SnapshotVersion,
		Seed:          42,
		Dimension:     16,
		Generation:    7,
		SurvivalRatio: 0.25,
		Agents: []AgentState{
			{ID: 1, X: 2, Y: 3, Fingerprint: 0b1010, Genes: 4, Description: "Sensor(Blocked) -> Action(MoveEast 0.1)\n"},
			{ID: 2, X: 5, Y: 9, Fingerprint: 0b0110, Genes: 2},
		},
	}

	path, err := SaveSnapshot(snapshot, dir)
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if filepath.Base(path) != "snapshot_gen_7.json" {
		t.Errorf("unexpected file name %q", filepath.Base(path))
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.Seed != 42 || loaded.Generation != 7 || len(loaded.Agents) != 2 {
		t.Errorf("loaded header mismatch: %+v", loaded)
	}
	if loaded.Agents[0] != snapshot.Agents[0] {
		t.Errorf("agent 0 = %+v, want %+v", loaded.Agents[0], snapshot.Agents[0])
	}
}

func TestSnapshotVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected version error")
	}
}

func TestOutputManager(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	for g := 1; g <= 3; g++ {
		if err := om.WriteGeneration(GenerationStats{Generation: g, Survivors: g * 10}); err != nil {
			t.Fatalf("WriteGeneration: %v", err)
		}
	}
	if err := om.WritePhenotypes([]Phenotype{{Generation: 1, Rank: 1, Fingerprint: 3, Count: 9}}); err != nil {
		t.Fatalf("WritePhenotypes: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "generations.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Errorf("generations.csv has %d lines, want header + 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "generation,") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config.yaml not written: %v", err)
	}
}

func TestNilOutputManager(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("empty dir should disable output, got %v, %v", om, err)
	}
	if err := om.WriteGeneration(GenerationStats{}); err != nil {
		t.Errorf("nil manager write: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil manager close: %v", err)
	}
}
