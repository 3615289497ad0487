package blockexec

import (
	"github.com/fraudproof/stepvm/core/types"
	"github.com/fraudproof/stepvm/step"
)

// buildReceipt folds the logs accumulated on t during execution into a
// Receipt, computing the bloom filter the way core/types.LogsBloom does
// (address and each topic contribute 3 bits each), per frame_receipt.go's
// per-log bloom accumulation.
func buildReceipt(status uint64, cumulativeGasUsed uint64, logs []step.Log) step.Receipt {
	r := step.Receipt{
		Status:            status,
		CumulativeGasUsed: cumulativeGasUsed,
		Logs:              logs,
	}
	for _, l := range logs {
		types.BloomAdd(&r.Bloom, l.Address[:])
		for _, topic := range l.Topics {
			types.BloomAdd(&r.Bloom, topic[:])
		}
	}
	return r
}
