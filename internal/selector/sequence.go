package selector

// Sequence is the final ordered list of eligible units. Index i is the unit a
// caller gets with skip=i.
type Sequence []Unit

// At returns the unit at the zero-based offset skip. The boolean is false when
// skip is past the end. skip must already be validated.
func (s Sequence) At(skip int) (Unit, bool) {
	if skip < 0 || skip >= len(s) {
		return Unit{}, false
	}
	return s[skip], true
}

// Len returns the number of selectable units.
func (s Sequence) Len() int {
	return len(s)
}

// buildSequence concatenates the ordered subtask groups with the ordered
// top-level tasks.
func buildSequence(e eligibility) Sequence {
	n := len(e.tasks)
	for _, g := range e.groups {
		n += len(g.subtasks)
	}

	seq := make(Sequence, 0, n)
	for _, g := range e.groups {
		seq = append(seq, g.subtasks...)
	}
	return append(seq, e.tasks...)
}

// Entry pairs a unit with the offset that selects it.
type Entry struct {
	Offset int `json:"offset"`
	Unit
}

// Entries returns the sequence with offsets attached.
func (s Sequence) Entries() []Entry {
	out := make([]Entry, len(s))
	for i, u := range s {
		out[i] = Entry{Offset: i, Unit: u}
	}
	return out
}
