package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/pourover/field"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	params := field.DefaultParams()
	params.ViewMode = field.ViewExtraction
	cloud := field.Cloud{
		{X: 0.1, Y: 0.2, Z: 0.3, Color: 0x8a6642},
		{X: -0.5, Y: 1.0, Z: 0.0, Color: 0x9fd3ff},
	}

	snapshot := NewSnapshot(42, 1000, "physics", &params, cloud)
	snapshot.Bookmark = &Bookmark{
		Type:        BookmarkQuietView,
		Tick:        1000,
		Description: "Test bookmark",
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if !strings.HasSuffix(path, "snapshot_1000_physics_quiet_view.json") {
		t.Errorf("unexpected snapshot path %s", path)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.Seed != 42 || loaded.Tick != 1000 || loaded.Source != "physics" {
		t.Errorf("header mismatch: %+v", loaded)
	}
	if loaded.Params == nil || *loaded.Params != params {
		t.Errorf("params mismatch: got %+v, want %+v", loaded.Params, params)
	}
	if loaded.Bookmark == nil || loaded.Bookmark.Type != BookmarkQuietView {
		t.Error("bookmark not preserved")
	}

	got := loaded.Cloud()
	if len(got) != len(cloud) {
		t.Fatalf("expected %d particles, got %d", len(cloud), len(got))
	}
	for i := range cloud {
		if got[i] != cloud[i] {
			t.Errorf("particle %d: got %+v, want %+v", i, got[i], cloud[i])
		}
	}
}

func TestLoadSnapshotRejectsOtherVersions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "particles": []}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected error for unknown snapshot version")
	}
}

func TestSnapshotCloudMasksColor(t *testing.T) {
	s := &Snapshot{Particles: []ParticleState{{Color: 0xff123456}}}
	if c := s.Cloud(); c[0].Color != 0x123456 {
		t.Errorf("expected colour masked to 24 bits, got %x", c[0].Color)
	}
}
