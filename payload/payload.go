// Package payload adapts generative-service voxel responses into point clouds.
//
// The adapter is a strict boundary: whatever the service returns, the cloud
// handed onward contains only finite coordinates and valid 24-bit colours.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/pourover/field"
)

var (
	// ErrMalformed is returned when the payload is not a JSON object of the expected shape.
	ErrMalformed = errors.New("payload: malformed")
	// ErrNoVoxels is returned when no usable voxel survives adaptation.
	ErrNoVoxels = errors.New("payload: no usable voxels")
)

// Options controls adaptation.
type Options struct {
	Scale        float64 // Uniform coordinate scale; 0 means 1
	MaxParticles int     // Cap on the resulting cloud; 0 means unbounded
	Fallback     uint32  // Colour for entries whose colour cannot be parsed
}

// Result is an adapted payload.
type Result struct {
	Text    string
	Cloud   field.Cloud
	Dropped int // Entries discarded for missing or non-finite coordinates
}

type response struct {
	Text   string            `json:"text"`
	Voxels []json.RawMessage `json:"voxels"`
}

type voxel struct {
	X     *coord          `json:"x"`
	Y     *coord          `json:"y"`
	Z     *coord          `json:"z"`
	Color json.RawMessage `json:"color"`
}

// coord accepts a JSON number or a numeric string.
type coord float64

func (c *coord) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*c = coord(math.NaN())
			return nil
		}
		*c = coord(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		*c = coord(math.NaN())
		return nil
	}
	*c = coord(v)
	return nil
}

// Adapt parses a service response of the form
// {"text": "...", "voxels": [{"x":..,"y":..,"z":..,"color":"#rrggbb"}]}.
func Adapt(data []byte, opts Options) (Result, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}

	res := Result{Text: resp.Text}
	cloud := make(field.Cloud, 0, len(resp.Voxels))
	for _, raw := range resp.Voxels {
		var v voxel
		if err := json.Unmarshal(raw, &v); err != nil {
			res.Dropped++
			continue
		}
		if v.X == nil || v.Y == nil || v.Z == nil {
			res.Dropped++
			continue
		}
		// Narrow before the check: magnitudes past float32 range become Inf.
		x := float32(float64(*v.X) * scale)
		y := float32(float64(*v.Y) * scale)
		z := float32(float64(*v.Z) * scale)
		if !finite32(x) || !finite32(y) || !finite32(z) {
			res.Dropped++
			continue
		}
		cloud = append(cloud, field.Particle{
			X:     x,
			Y:     y,
			Z:     z,
			Color: rawColor(v.Color, opts.Fallback),
		})
	}

	if len(cloud) == 0 {
		return res, ErrNoVoxels
	}
	res.Cloud = field.Limit(cloud, opts.MaxParticles)
	return res, nil
}

// rawColor accepts a hex string or an integer colour.
func rawColor(raw json.RawMessage, fallback uint32) uint32 {
	if len(raw) == 0 {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseColor(s, fallback)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && n >= 0 && n <= 0xffffff && n == math.Trunc(n) {
		return uint32(n)
	}
	return fallback
}

// ParseColor parses "#rrggbb", "rrggbb", "#rgb" or "rgb" into packed RGB,
// returning fallback for anything else.
func ParseColor(s string, fallback uint32) uint32 {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 3 && len(s) != 6 {
		return fallback
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return fallback
		}
	}
	c, err := colorful.Hex("#" + s)
	if err != nil {
		return fallback
	}
	r, g, b := c.RGB255()
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func finite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
