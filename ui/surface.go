package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

// pointSize is the cube edge length of one instance at scale 1.
const pointSize float32 = 0.028

// Surface holds the committed instance buffer and draws it as cubes.
// It implements morph.Surface.
type Surface struct {
	matrices []mgl32.Mat4
	colors   []rl.Color
	rebuilds int
	released bool
}

// NewSurface creates an empty surface.
func NewSurface() *Surface {
	return &Surface{}
}

// Rebuild reallocates the instance buffer.
func (s *Surface) Rebuild(capacity int) {
	s.matrices = make([]mgl32.Mat4, capacity)
	s.colors = make([]rl.Color, capacity)
	s.rebuilds++
}

// Commit copies the engine's instance data.
func (s *Surface) Commit(matrices []mgl32.Mat4, colors []uint32) {
	n := copy(s.matrices, matrices)
	for i := 0; i < n && i < len(colors); i++ {
		s.colors[i] = PackedColor(colors[i])
	}
}

// Release drops the instance buffer.
func (s *Surface) Release() {
	s.matrices = nil
	s.colors = nil
	s.released = true
}

// Rebuilds returns how many times the buffer was reallocated.
func (s *Surface) Rebuilds() int { return s.rebuilds }

// Draw renders every visible instance. Must be called inside BeginMode3D.
func (s *Surface) Draw() {
	size := rl.Vector3{X: pointSize, Y: pointSize, Z: pointSize}
	for i := range s.matrices {
		m := &s.matrices[i]
		// Hidden slots have a zero basis.
		if m[0]*m[0]+m[1]*m[1]+m[2]*m[2] == 0 {
			continue
		}
		rl.PushMatrix()
		rl.MultMatrixf(m[:])
		rl.DrawCubeV(rl.Vector3{}, size, s.colors[i])
		rl.PopMatrix()
	}
}
