package step

import "testing"

func TestNewStepEntryMode(t *testing.T) {
	s := New()
	if s.Control.ExecMode != BlockPre {
		t.Fatalf("New() exec_mode = %v, want BlockPre", s.Control.ExecMode)
	}
	if s.Control.ReturnToStep != NoReturn {
		t.Fatalf("New() return_to_step = %d, want NoReturn", s.Control.ReturnToStep)
	}
}

func TestRootIsDeterministic(t *testing.T) {
	s := New()
	r1 := Root(s)
	r2 := Root(s)
	if r1 != r2 {
		t.Fatalf("Root is not deterministic: %x != %x", r1, r2)
	}
}

func TestRootChangesWithExecMode(t *testing.T) {
	s1 := New()
	s2 := Copy(s1)
	s2.Control.ExecMode = TxLoad
	if Root(s1) == Root(s2) {
		t.Fatalf("Root did not change after exec_mode changed")
	}
}

func TestCopyIsIndependent(t *testing.T) {
	s1 := New()
	s1.Contract.Memory.Resize(64)
	s1.Contract.Memory.Store[0] = 0xAA

	s2 := Copy(s1)
	s2.Contract.Memory.Store[0] = 0xBB

	if s1.Contract.Memory.Store[0] != 0xAA {
		t.Fatalf("Copy aliased memory: mutation of copy leaked back to original")
	}
}

func TestConcatRoundTrip(t *testing.T) {
	anchor := GroupAnchor(groupContract)
	local := uint64(5) // some generalized index within the contract subtree
	combined := Concat(anchor, local)
	if combined == 0 {
		t.Fatalf("Concat produced zero generalized index")
	}
}

func TestTrackerRecordsGroupAccess(t *testing.T) {
	tr := NewTracker()
	s := New()
	tr.Contract(s)
	tr.Block(s)

	gis := tr.GeneralizedIndices()
	if len(gis) != 2 {
		t.Fatalf("GeneralizedIndices() len = %d, want 2", len(gis))
	}
}

func TestArenaPushGet(t *testing.T) {
	a := NewArena()
	s := New()
	idx := a.Push(s)
	if a.Get(idx) != s {
		t.Fatalf("Arena.Get did not return the pushed step")
	}
	if a.Get(NoReturn) != nil {
		t.Fatalf("Arena.Get(NoReturn) should be nil")
	}
}
