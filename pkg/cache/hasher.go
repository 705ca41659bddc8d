package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Network is the structure GraphHash digests. EdgeAt returns the endpoints,
// capacity and cost of the i-th edge, 0 <= i < EdgeCount().
type Network interface {
	NodeCount() int
	EdgeCount() int
	EdgeAt(i int) (from, to int, capacity, cost int64)
}

// GraphHash returns a hex digest identifying the network's structure: node
// count and every edge's endpoints, capacity and cost in order. Flow is not
// part of the hash.
//
// Edge order is significant because cached per-edge flows are restored by
// edge index.
func GraphHash(n Network) string {
	if n == nil {
		return ""
	}

	h := sha256.New()
	var buf [8]byte
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:]) //nolint:errcheck // hash.Hash never fails
	}

	edges := n.EdgeCount()
	write(uint64(n.NodeCount()))
	write(uint64(edges))
	for i := range edges {
		from, to, capacity, cost := n.EdgeAt(i)
		write(uint64(from))
		write(uint64(to))
		write(uint64(capacity))
		write(uint64(cost))
	}

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// SolveKey identifies one solve request against a hashed graph.
type SolveKey struct {
	GraphHash string
	Source    int
	Sink      int
	Mode      string
	Algorithm string
	Target    *uint64
	Exact     bool
}

// String renders the cache key. The graph hash sits in its own segment so
// Invalidate can match every request against one graph.
func (k SolveKey) String() string {
	target := "max"
	if k.Target != nil {
		target = fmt.Sprintf("%d", *k.Target)
		if k.Exact {
			target += "!"
		}
	}
	return fmt.Sprintf("solve:%s:%s:%s:%d-%d:%s", k.Mode, k.Algorithm, k.GraphHash, k.Source, k.Sink, target)
}
