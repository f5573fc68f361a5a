package wargame

import (
	"encoding/json"
	"testing"
)

func TestSnapshotRebuildsState(t *testing.T) {
	gs := StandardScenario()
	data, err := json.Marshal(gs.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Units()) != len(gs.Units()) {
		t.Errorf("units = %d, want %d", len(got.Units()), len(gs.Units()))
	}
	if got.Map.Distance("berlin", "moscow") != 3 {
		t.Error("adjacency lost")
	}
	if !got.CanalBlocks("italy", "med_east", "red_sea") {
		t.Error("canal lost")
	}
	if got.TurnOrder[1] != "russia" {
		t.Errorf("turn order = %v", got.TurnOrder)
	}
}

func TestDecodeSnapshotUnknownType(t *testing.T) {
	raw := `{"territories":[{"id":"a","water":false}],"units":[{"id":"u1","owner":"p","type":"zeppelin","territory":"a"}]}`
	if _, err := DecodeSnapshot([]byte(raw)); err == nil {
		t.Error("expected error for unknown unit type")
	}
}
