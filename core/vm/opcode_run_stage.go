package vm

import (
	"github.com/fraudproof/stepvm/external"
	"github.com/fraudproof/stepvm/statework"
	"github.com/fraudproof/stepvm/step"
)

// stageOpcodeRun executes the loaded opcode's handler. Opcodes with no
// runTable entry (unassigned byte values, or opcodes this engine has not
// implemented) behave like the real EVM's INVALID: they consume all
// remaining gas and fail the frame.
func stageOpcodeRun(s *step.Step, world *statework.World, ext external.ExternalSource) error {
	op := OpCode(s.Contract.Op)
	h := runTable[op]
	if h == nil {
		return opInvalid(s, world, ext)
	}
	return h(s, world, ext)
}
