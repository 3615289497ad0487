package step

// Arena owns the pool of steps a trace has produced, so that recursive
// step references (Control.ReturnToStep, MPTWork.ParentNodeStep, §9) can be
// represented as plain int64 indices instead of embedded pointers or
// self-referential structs.
type Arena struct {
	steps []*Step
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Push appends s to the arena and returns its index.
func (a *Arena) Push(s *Step) int64 {
	a.steps = append(a.steps, s)
	return int64(len(a.steps) - 1)
}

// Get returns the step at idx, or nil if idx is NoReturn or out of range.
func (a *Arena) Get(idx int64) *Step {
	if idx == NoReturn || idx < 0 || int(idx) >= len(a.steps) {
		return nil
	}
	return a.steps[idx]
}

// Len returns the number of steps recorded in the arena.
func (a *Arena) Len() int { return len(a.steps) }
