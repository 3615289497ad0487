package vm

import (
	"github.com/fraudproof/stepvm/core/types"
	"github.com/fraudproof/stepvm/external"
	"github.com/fraudproof/stepvm/statework"
	"github.com/fraudproof/stepvm/step"
	"github.com/holiman/uint256"
)

func init() {
	runTable[SLOAD] = opSload
	runTable[SSTORE] = opSstore
	for i := 0; i < 5; i++ {
		runTable[LOG0+OpCode(i)] = opLog(i)
	}
}

func opSload(s *step.Step, world *statework.World, _ external.ExternalSource) error {
	top := s.Contract.Stack.Peek(0)
	slot := types.Hash(top.Bytes32())
	val, err := world.StorageRead(s.Contract.SelfAddr, slot)
	if err != nil {
		return err
	}
	*top = *new(uint256.Int).SetBytes32(val[:])
	return advance(s)
}

func opSstore(s *step.Step, world *statework.World, _ external.ExternalSource) error {
	keyV, valV := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	slot := types.Hash(keyV.Bytes32())
	val := valV.Bytes32()
	if err := world.StorageWrite(s.Contract.SelfAddr, slot, val); err != nil {
		return err
	}
	return advance(s)
}

func opLog(topicCount int) runHandler {
	return func(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
		offV, sizeV := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
		off, size := toU64Saturating(&offV), toU64Saturating(&sizeV)
		topics := make([]types.Hash, topicCount)
		for i := 0; i < topicCount; i++ {
			t := s.Contract.Stack.Pop()
			topics[i] = types.Hash(t.Bytes32())
		}
		data := readMemory(&s.Contract.Memory, off, size)
		s.Tx.Logs = append(s.Tx.Logs, step.Log{
			Address: s.Contract.SelfAddr,
			Topics:  topics,
			Data:    append([]byte(nil), data...),
		})
		return advance(s)
	}
}
