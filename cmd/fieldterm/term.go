package main

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/pourover/field"
	"github.com/pthm-cable/pourover/viewer"
)

// term draws the viewer into a tcell screen.
type term struct {
	screen tcell.Screen
	viewer *viewer.Viewer
	frame  *frame
}

func newTerm(screen tcell.Screen, v *viewer.Viewer) *term {
	cols, rows := screen.Size()
	return &term{screen: screen, viewer: v, frame: newFrame(cols, rows)}
}

func (t *term) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !t.handleInput(ev) {
				return
			}
		case <-ticker.C:
			t.viewer.Update()
			t.viewer.Draw(t.draw)
		}
	}
}

// handleInput returns false when the user quits.
func (t *term) handleInput(ev tcell.Event) bool {
	v := t.viewer
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRight:
			v.NextScene()
		case tcell.KeyLeft:
			v.PrevScene()
		case tcell.KeyUp:
			v.Engine().Camera().Orbit(0, 0.1)
		case tcell.KeyDown:
			v.Engine().Camera().Orbit(0, -0.1)
		case tcell.KeyRune:
			return t.handleRune(ev.Rune())
		}
	case *tcell.EventResize:
		t.handleResize()
	}
	return true
}

func (t *term) handleRune(r rune) bool {
	v := t.viewer
	switch r {
	case 'q':
		return false
	case 'm':
		v.TogglePhysics()
	case '1', '2', '3', '4':
		v.SetViewMode(field.ViewModes()[r-'1'])
	case 'c':
		shape := field.ShapeFlat
		if v.Params().Shape == field.ShapeFlat {
			shape = field.ShapeCone
		}
		v.SetShape(shape)
	case 'r':
		v.SetAutoRotate(!v.Engine().Camera().AutoRotate)
	case '+', '=':
		v.Engine().Camera().ZoomBy(1.1)
	case '-':
		v.Engine().Camera().ZoomBy(1 / 1.1)
	case 'h':
		v.Engine().Camera().Reset()
	}
	return true
}

func (t *term) handleResize() {
	t.screen.Sync()
	cols, rows := t.screen.Size()
	if cols == t.frame.cols && rows == t.frame.rows {
		return
	}
	t.frame.resize(cols, rows)
	t.viewer.HandleResize(float32(cols), float32(rows*cellAspect))
}

func (t *term) draw() {
	e := t.viewer.Engine()
	t.frame.rasterize(e.Camera(), e.Matrices(), e.Colors())

	t.screen.Clear()
	for row := 0; row < t.frame.rows; row++ {
		for col := 0; col < t.frame.cols; col++ {
			c := t.frame.at(col, row)
			if !c.set {
				continue
			}
			color := tcell.NewRGBColor(int32(c.color>>16&0xff), int32(c.color>>8&0xff), int32(c.color&0xff))
			t.screen.SetContent(col, row, '█', nil, tcell.StyleDefault.Foreground(color))
		}
	}

	status := fmt.Sprintf(" %s | %s | %s %3.0f%% | %d/%d ",
		t.viewer.Source(), t.viewer.Mode(), e.State(), e.Progress()*100, e.Live(), e.Capacity())
	if t.viewer.Mode() == viewer.ModePhysics {
		status += fmt.Sprintf("| %s | yield %.1f%% ", t.viewer.Params().ViewMode, t.viewer.Yield()*100)
	}
	t.drawText(0, 0, status, tcell.StyleDefault.Reverse(true))
	t.drawText(0, t.frame.rows-1, " <-/-> scene  m physics  1-4 view  c shape  r rotate  +/- zoom  h home  q quit ", tcell.StyleDefault.Foreground(tcell.ColorGray))

	t.screen.Show()
}

func (t *term) drawText(col, row int, s string, style tcell.Style) {
	for _, r := range s {
		if col >= t.frame.cols {
			return
		}
		t.screen.SetContent(col, row, r, nil, style)
		col++
	}
}
