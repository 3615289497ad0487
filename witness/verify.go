package witness

import (
	"github.com/fraudproof/stepvm/crypto"
	"github.com/fraudproof/stepvm/step"
)

// BuildGroupProof produces the multi-proof for the top-level generalized
// indices tr recorded as accessed while computing s's transition, so a
// verifier holding only those group roots (not the whole Step) can check
// they are consistent with s's claimed root.
func BuildGroupProof(s *step.Step, tr *step.Tracker) (*crypto.MerkleMultiProof, error) {
	tree, depth := step.BuildTopTree(s)
	leafIndices := make([]uint64, 0, len(tr.GeneralizedIndices()))
	for _, gi := range tr.GeneralizedIndices() {
		leafIndices = append(leafIndices, gi-(uint64(1)<<depth))
	}
	return crypto.GenerateMultiProof(tree, depth, leafIndices)
}

// VerifyGroupProof checks that proof is a valid multi-proof against root,
// i.e. that the accessed group roots genuinely belong to the step whose
// top-level Merkleization hashes to root.
func VerifyGroupProof(root [32]byte, proof *crypto.MerkleMultiProof) bool {
	return crypto.VerifyMultiProof(root, proof)
}
