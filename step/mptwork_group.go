package step

// MPTMode is the mode of the mpt_work state machine (§4.3).
type MPTMode byte

const (
	MPTReading MPTMode = iota
	MPTWriting
	MPTDeleting
	MPTGraftingA
	MPTGraftingB
	MPTDone
)

// TreeSource selects which MPT a mpt_work request operates against: the
// world (account) trie, or a given account's storage trie.
type TreeSource byte

const (
	TreeWorld TreeSource = iota
	TreeStorage
)

// FailLookup enumerates the coded lookup-failure reasons (§4.3/§7).
type FailLookup uint32

const (
	FailNone FailLookup = iota
	FailKeyNotFound
	FailNodeNotFound
	FailMalformedNode
	FailUnexpectedNodeType
)

// MPTWork is the mpt_work scratch group driving one traversal of a
// hash-addressed Merkle-Patricia trie.
type MPTWork struct {
	TreeSource       TreeSource
	StartReference   [32]byte // storage trie root, when TreeSource == TreeStorage
	Mode             MPTMode
	WriteRoot        [32]byte // accumulated new root on a write/delete path
	ModeOnFinish      ExecMode
	ParentNodeStep    int64 // arena index of the caller frame to resume, NoReturn if top-level
	CurrentRoot      []byte // current node hash or inline RLP under 32 bytes
	FailLookup       FailLookup

	LookupKey         [32]byte
	LookupKeyNibbles  []byte
	LookupNibbleDepth int

	GraftKeySegment []byte
	GraftKeyNibbles []byte

	Value []byte // RLP-encoded leaf value being read or written
}
