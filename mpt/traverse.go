package mpt

import (
	"github.com/fraudproof/stepvm/step"
)

// Advance resolves exactly one node of a READING mpt_work request against
// src, mutating s.MPTWork and s.Control in place. The caller is expected to
// call Advance once per next_step transition while s.Control.ExecMode ==
// step.MPTWork and s.MPTWork.Mode == step.MPTReading, stopping once
// s.MPTWork.Mode becomes step.MPTDone.
func Advance(s *step.Step, src NodeSource) {
	w := &s.MPTWork
	if w.LookupKeyNibbles == nil {
		w.LookupKeyNibbles = KeyToNibbles(w.LookupKey[:])
		w.LookupNibbleDepth = 0
	}

	if len(w.CurrentRoot) == 0 {
		finishRead(s, step.FailKeyNotFound, nil)
		return
	}
	var hash [32]byte
	copy(hash[:], w.CurrentRoot)
	enc, ok := src.GetNode(hash)
	if !ok {
		finishRead(s, step.FailNodeNotFound, nil)
		return
	}
	n, err := DecodeNode(enc)
	if err != nil {
		finishRead(s, step.FailMalformedNode, nil)
		return
	}

	remaining := w.LookupKeyNibbles[w.LookupNibbleDepth:]

	switch n.Kind {
	case KindEmpty:
		finishRead(s, step.FailKeyNotFound, nil)

	case KindLeaf:
		if nibblesEqual(n.Key, remaining) {
			finishRead(s, step.FailNone, n.Value)
		} else {
			finishRead(s, step.FailKeyNotFound, nil)
		}

	case KindExtension:
		if len(remaining) < len(n.Key) || prefixLen(n.Key, remaining) != len(n.Key) {
			finishRead(s, step.FailKeyNotFound, nil)
			return
		}
		w.LookupNibbleDepth += len(n.Key)
		w.CurrentRoot = n.Child

	case KindBranch:
		if len(remaining) == 1 && remaining[0] == terminatorByte {
			if n.Value == nil {
				finishRead(s, step.FailKeyNotFound, nil)
			} else {
				finishRead(s, step.FailNone, n.Value)
			}
			return
		}
		idx := remaining[0]
		child := n.Children[idx]
		if len(child) == 0 {
			finishRead(s, step.FailKeyNotFound, nil)
			return
		}
		w.LookupNibbleDepth++
		w.CurrentRoot = child

	default:
		finishRead(s, step.FailUnexpectedNodeType, nil)
	}
}

func nibblesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func finishRead(s *step.Step, fail step.FailLookup, value []byte) {
	w := &s.MPTWork
	w.Mode = step.MPTDone
	w.FailLookup = fail
	w.Value = value
	s.Control.ExecMode = w.ModeOnFinish
}
