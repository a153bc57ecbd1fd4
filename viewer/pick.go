package viewer

// Pick returns the live slot whose projection lies nearest to the screen
// point (sx, sy) within radius pixels. Ties go to the slot nearer the eye.
func (v *Viewer) Pick(sx, sy, radius float32) (int, bool) {
	cam := v.engine.Camera()
	best, bestDist, bestDepth := -1, radius*radius, float32(0)
	for i := 0; i < v.engine.Live(); i++ {
		s, ok := v.engine.Slot(i)
		if !ok {
			break
		}
		px, py, depth, visible := cam.WorldToScreen(s.Position)
		if !visible {
			continue
		}
		dx, dy := px-sx, py-sy
		d := dx*dx + dy*dy
		if d > bestDist || (d == bestDist && best >= 0 && depth >= bestDepth) {
			continue
		}
		best, bestDist, bestDepth = i, d, depth
	}
	return best, best >= 0
}
