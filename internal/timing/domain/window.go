package domain

// SlotWindow is the caller-allowed interval on the week grid. When the
// requested bounds wrap the week boundary the valid set is the
// concatenation [After..10079] plus [0..Before).
type SlotWindow struct {
	After  int
	Before int
}

// NewSlotWindow derives the valid slot window from caller bounds.
func NewSlotWindow(afterSlot, beforeSlot int) SlotWindow {
	return SlotWindow{After: afterSlot, Before: beforeSlot}
}

// Wraps reports whether the window crosses the week boundary.
func (w SlotWindow) Wraps() bool {
	return w.Before <= w.After
}

// Contains reports whether a slot falls inside the window.
func (w SlotWindow) Contains(slot int) bool {
	if w.Wraps() {
		return slot >= w.After || slot < w.Before
	}
	return slot >= w.After && slot < w.Before
}

// Size returns the number of valid slots.
func (w SlotWindow) Size() int {
	if w.Wraps() {
		return (MinutesPerWeek - w.After) + w.Before
	}
	return w.Before - w.After
}

// BestSlot selects the argmax of curve probability over the valid set,
// ties broken by the lowest slot index so selection is deterministic and
// neither wrap segment is favored by construction order. Returns false
// when the window is empty.
func (w SlotWindow) BestSlot(curve *EngagementCurve) (int, bool) {
	if w.Size() <= 0 {
		return 0, false
	}

	best := -1
	bestProb := -1.0
	scan := func(from, to int) {
		for slot := from; slot < to; slot++ {
			if p := curve.ProbabilityAt(slot); p > bestProb {
				best = slot
				bestProb = p
			}
		}
	}

	if w.Wraps() {
		// Scan ascending from 0 so the lowest-index tie break holds
		// across both segments.
		scan(0, w.Before)
		scan(w.After, MinutesPerWeek)
	} else {
		scan(w.After, w.Before)
	}

	return best, true
}
