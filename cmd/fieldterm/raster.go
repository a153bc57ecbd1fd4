package main

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/pourover/camera"
)

// cellAspect is how many viewport rows one terminal row covers. Terminal
// cells are roughly twice as tall as they are wide.
const cellAspect = 2

// cell is one rasterized terminal cell.
type cell struct {
	color uint32
	depth float32
	set   bool
}

// frame is a depth-tested grid of terminal cells.
type frame struct {
	cols, rows int
	cells      []cell
}

func newFrame(cols, rows int) *frame {
	f := &frame{}
	f.resize(cols, rows)
	return f
}

func (f *frame) resize(cols, rows int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	f.cols, f.rows = cols, rows
	f.cells = make([]cell, cols*rows)
}

func (f *frame) at(col, row int) cell {
	return f.cells[row*f.cols+col]
}

// rasterize projects every visible instance through cam and keeps the
// nearest instance per cell. cam's viewport must be cols by rows*cellAspect.
func (f *frame) rasterize(cam *camera.Camera, matrices []mgl32.Mat4, colors []uint32) int {
	for i := range f.cells {
		f.cells[i] = cell{}
	}
	drawn := 0
	for i, m := range matrices {
		if i >= len(colors) {
			break
		}
		// Hidden slots have a zero basis.
		if m[0]*m[0]+m[1]*m[1]+m[2]*m[2] == 0 {
			continue
		}
		pos := m.Col(3).Vec3()
		sx, sy, depth, ok := cam.WorldToScreen(pos)
		if !ok {
			continue
		}
		col, row := int(sx), int(sy)/cellAspect
		if col < 0 || col >= f.cols || row < 0 || row >= f.rows {
			continue
		}
		c := &f.cells[row*f.cols+col]
		if c.set && c.depth <= depth {
			continue
		}
		*c = cell{color: colors[i], depth: depth, set: true}
		drawn++
	}
	return drawn
}
