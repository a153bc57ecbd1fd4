package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/pourover/field"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds a target cloud and how it was produced, for replay.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`
	Tick    int32 `json:"tick"`

	Source string        `json:"source"`
	Params *field.Params `json:"params,omitempty"` // physics mode only

	Particles []ParticleState `json:"particles"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// ParticleState is the JSON form of one particle.
type ParticleState struct {
	X     float32 `json:"x"`
	Y     float32 `json:"y"`
	Z     float32 `json:"z"`
	Color uint32  `json:"color"`
}

// NewSnapshot captures a cloud.
func NewSnapshot(seed int64, tick int32, source string, params *field.Params, c field.Cloud) *Snapshot {
	ps := make([]ParticleState, len(c))
	for i, p := range c {
		ps[i] = ParticleState{X: p.X, Y: p.Y, Z: p.Z, Color: p.Color}
	}
	return &Snapshot{
		Version:   SnapshotVersion,
		Seed:      seed,
		Tick:      tick,
		Source:    source,
		Params:    params,
		Particles: ps,
	}
}

// Cloud converts the snapshot back into a cloud, masking colours to 24 bits.
func (s *Snapshot) Cloud() field.Cloud {
	c := make(field.Cloud, len(s.Particles))
	for i, p := range s.Particles {
		c[i] = field.Particle{X: p.X, Y: p.Y, Z: p.Z, Color: p.Color & 0xffffff}
	}
	return c
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitize(snapshot.Source))
	if snapshot.Bookmark != nil {
		name = fmt.Sprintf("%s_%s", name, sanitize(string(snapshot.Bookmark.Type)))
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}

// sanitize makes a name safe for filenames.
func sanitize(s string) string {
	if s == "" {
		return "cloud"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
