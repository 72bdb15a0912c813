package merkle

import (
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/infimum-network/infimum/pkg/poseidon"
)

// zeroTables caches the per-arity zero-subtree digest tables: zeroTables[arity][d]
// is the root of an all-zero subtree of depth d for that arity.
var (
	zeroTablesOnce sync.Mutex
	zeroTables     = map[int][]fr.Element{}
)

// ZeroHashes returns (computing and caching on first use) the zero-subtree
// table for the given arity, up to and including fullDepth. Index 0 is the
// zero leaf (the field-zero element); index d is H(Z[d-1], ..., Z[d-1])
// (arity copies).
func ZeroHashes(arity, fullDepth int) ([]fr.Element, error) {
	zeroTablesOnce.Lock()
	defer zeroTablesOnce.Unlock()

	if table, ok := zeroTables[arity]; ok && len(table) > fullDepth {
		return table, nil
	}

	table := make([]fr.Element, fullDepth+1)
	table[0] = fr.Element{} // zero leaf
	for d := 1; d <= fullDepth; d++ {
		children := make([]fr.Element, arity)
		for i := range children {
			children[i] = table[d-1]
		}
		digest, err := poseidon.HashN(children...)
		if err != nil {
			return nil, err
		}
		table[d] = digest
	}

	zeroTables[arity] = table
	return table, nil
}
