package blockexec

import "github.com/fraudproof/stepvm/step"

const (
	txGas                  = 21000
	txGasContractCreation  = 53000 // txGas + 32000, Homestead (EIP-2)
	txDataZeroGas          = 4
	txDataNonZeroGasFrontier = 68
	txDataNonZeroGasIstanbul = 16 // EIP-2028
	txAccessListAddressGas = 2400
	txAccessListStorageGas = 1900
)

// IntrinsicGas computes the gas a transaction must cover before a single
// opcode runs: the flat tx cost, calldata cost (post-Istanbul pricing), and
// the EIP-2930 access-list surcharge.
func IntrinsicGas(nt *step.NormalizedTx) uint64 {
	var gas uint64
	if nt.IsContractCreation {
		gas = txGasContractCreation
	} else {
		gas = txGas
	}

	var nz, z uint64
	for _, b := range nt.Payload {
		if b == 0 {
			z++
		} else {
			nz++
		}
	}
	gas += nz * txDataNonZeroGasIstanbul
	gas += z * txDataZeroGas

	gas += uint64(len(nt.AccessList)) * txAccessListAddressGas
	for _, at := range nt.AccessList {
		gas += uint64(len(at.StorageKeys)) * txAccessListStorageGas
	}
	return gas
}
