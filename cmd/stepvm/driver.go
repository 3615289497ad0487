package main

import (
	"fmt"

	"github.com/fraudproof/stepvm/blockexec"
	"github.com/fraudproof/stepvm/core/vm"
	"github.com/fraudproof/stepvm/external"
	"github.com/fraudproof/stepvm/statework"
	"github.com/fraudproof/stepvm/step"
)

// advance dispatches one sub-step to whichever of blockexec.Advance or
// vm.Advance owns s.Control.ExecMode's range. Neither package routes the
// other's modes, so a driver has to pick between them; this is that pick,
// grounded on the exec_mode ranges step/exec_mode.go documents (block
// pipeline 0x00-0x04/0x70-0x80, opcode pipeline and call/create
// hand-off/frame-errors everywhere else except the block-fatal range,
// which is terminal and never dispatched). DONE (0xff) never reaches
// advance: runBlock stops on it first.
func advance(s *step.Step, payload *blockexec.Payload, world *statework.World, ext external.ExternalSource) error {
	m := s.Control.ExecMode
	if m.IsBlockFatal() {
		return fmt.Errorf("stepvm: block-fatal exec_mode %s reached, trace cannot continue", m)
	}
	if isBlockPipelineMode(m) {
		return blockexec.Advance(s, payload, world)
	}
	return vm.Advance(s, world, ext)
}

func isBlockPipelineMode(m step.ExecMode) bool {
	switch m {
	case step.BlockPre, step.TxLoad, step.TxSig, step.TxFeesPre, step.TxFeesPost,
		step.BlockPreStateLoad, step.BlockHistoryLoad, step.BlockCalcBaseFee,
		step.BlockTxLoop, step.BlockTxApply, step.BlockTxReceipt, step.BlockTxNext,
		step.BlockPost:
		return true
	default:
		return false
	}
}

// runBlock drives s from its current exec_mode to DONE, recording the root
// of every intermediate step. maxSteps bounds a runaway trace (a malformed
// payload looping forever).
//
// Each step's accessed generalized indices are not recorded here: step.
// Tracker exists to record them, but nothing in blockexec.Advance/vm.Advance
// currently threads a *step.Tracker through to the MPT/statework accessors
// that would call Touch/TouchGroup, so there is nothing for the driver to
// read back yet. step_witness's witness.StepWitness.AccessedGIndices is
// left empty until that plumbing exists.
func runBlock(s *step.Step, payload *blockexec.Payload, world *statework.World, ext external.ExternalSource, maxSteps int) ([]stepRecord, error) {
	var records []stepRecord
	for i := 0; i < maxSteps; i++ {
		if s.Control.ExecMode == step.DONE {
			return records, nil
		}
		records = append(records, stepRecord{
			Index:    i,
			ExecMode: s.Control.ExecMode.String(),
			Root:     step.Root(s),
		})
		if err := advance(s, payload, world, ext); err != nil {
			return records, err
		}
	}
	return records, fmt.Errorf("stepvm: trace did not reach DONE within %d steps", maxSteps)
}

type stepRecord struct {
	Index    int
	ExecMode string
	Root     [32]byte
}
