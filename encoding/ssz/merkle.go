// Package ssz provides the Merkle plumbing shared by the proof builders
// and the period store: generalized-index multiproofs with shared-ancestor
// deduplication and the fixed vector roots of the on-disk block summaries.
package ssz

import (
	"crypto/sha256"
	"sort"

	fastssz "github.com/ferranbt/fastssz"
	"github.com/pkg/errors"
)

// SlotsPerPeriod block roots make up one blocks.ssz vector.
const SlotsPerPeriod = 8192

var (
	// ErrUnknownNode is returned when a multiproof needs a node the tree
	// cannot derive.
	ErrUnknownNode = errors.New("merkle node not present in tree")
	// ErrBadProof is returned when a multiproof does not resolve.
	ErrBadProof = errors.New("multiproof does not resolve to a root")
)

func hashPair(left, right [32]byte) [32]byte {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return sha256.Sum256(buf[:])
}

// Tree is a binary Merkle tree addressed by generalized indices: the root
// is 1, children of g are 2g and 2g+1. Nodes are set explicitly, so
// subtrees of different depths compose into one proof tree.
type Tree struct {
	depth uint
	nodes map[uint64][32]byte
}

// NewTree returns an empty tree to be populated with Set and Build.
func NewTree() *Tree {
	return &Tree{nodes: make(map[uint64][32]byte)}
}

// Set places a node value at a generalized index.
func (t *Tree) Set(gindex uint64, value [32]byte) { t.nodes[gindex] = value }

// Build derives every ancestor whose two children are known. Call after
// all leaves (and grafted subtree roots) are set.
func (t *Tree) Build() {
	work := make([]uint64, 0, len(t.nodes))
	for g := range t.nodes {
		work = append(work, g)
	}
	sort.Slice(work, func(i, j int) bool { return work[i] > work[j] })
	for len(work) > 0 {
		g := work[0]
		work = work[1:]
		if g <= 1 {
			continue
		}
		parent := g >> 1
		if _, ok := t.nodes[parent]; ok {
			continue
		}
		l, lok := t.nodes[2*parent]
		r, rok := t.nodes[2*parent+1]
		if !lok || !rok {
			continue
		}
		t.nodes[parent] = hashPair(l, r)
		work = append(work, parent)
	}
}

// NewTreeFromChunks builds a complete tree over the given 32-byte chunks,
// padded with zero chunks up to the next power of two.
func NewTreeFromChunks(chunks [][32]byte) *Tree {
	size := uint64(1)
	depth := uint(0)
	for size < uint64(len(chunks)) {
		size <<= 1
		depth++
	}
	t := NewTree()
	t.depth = depth
	for i := uint64(0); i < size; i++ {
		g := size + i
		if i < uint64(len(chunks)) {
			t.nodes[g] = chunks[i]
		} else {
			t.nodes[g] = [32]byte{}
		}
	}
	for g := size - 1; g >= 1; g-- {
		t.nodes[g] = hashPair(t.nodes[2*g], t.nodes[2*g+1])
	}
	return t
}

// Root returns the tree root.
func (t *Tree) Root() [32]byte { return t.nodes[1] }

// Node returns the node at a generalized index.
func (t *Tree) Node(gindex uint64) ([32]byte, error) {
	n, ok := t.nodes[gindex]
	if !ok {
		return [32]byte{}, errors.Wrapf(ErrUnknownNode, "gindex %d", gindex)
	}
	return n, nil
}

// LeafGIndex maps a chunk index to its generalized index.
func (t *Tree) LeafGIndex(i uint64) uint64 { return (1 << t.depth) + i }

// Multiproof returns the minimal witness set proving the given leaves,
// shared ancestors emitted once, ordered by descending generalized index
// (deepest level first).
func (t *Tree) Multiproof(gindices []uint64) ([][32]byte, []uint64, error) {
	covered := map[uint64]bool{}
	for _, g := range gindices {
		for x := g; x >= 1; x >>= 1 {
			covered[x] = true
		}
	}
	witness := map[uint64]bool{}
	for _, g := range gindices {
		for x := g; x > 1; x >>= 1 {
			sib := x ^ 1
			if !covered[sib] {
				witness[sib] = true
			}
		}
	}
	// A witness whose children are both known is redundant.
	for w := range witness {
		if covered[2*w] && covered[2*w+1] {
			delete(witness, w)
		}
	}
	order := make([]uint64, 0, len(witness))
	for w := range witness {
		order = append(order, w)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] > order[j] })
	proof := make([][32]byte, len(order))
	for i, g := range order {
		n, err := t.Node(g)
		if err != nil {
			return nil, nil, err
		}
		proof[i] = n
	}
	return proof, order, nil
}

// VerifyMultiproof recomputes the root from leaf values and the witness
// set produced by Multiproof.
func VerifyMultiproof(root [32]byte, proof [][32]byte, leaves map[uint64][32]byte) bool {
	nodes := make(map[uint64][32]byte, len(leaves)+len(proof))
	gindices := make([]uint64, 0, len(leaves))
	for g, v := range leaves {
		nodes[g] = v
		gindices = append(gindices, g)
	}
	// Witness positions are re-derived with the same dedup rule, so the
	// proof is consumed in the exact order it was produced.
	covered := map[uint64]bool{}
	for _, g := range gindices {
		for x := g; x >= 1; x >>= 1 {
			covered[x] = true
		}
	}
	witness := map[uint64]bool{}
	for _, g := range gindices {
		for x := g; x > 1; x >>= 1 {
			sib := x ^ 1
			if !covered[sib] {
				witness[sib] = true
			}
		}
	}
	for w := range witness {
		if covered[2*w] && covered[2*w+1] {
			delete(witness, w)
		}
	}
	order := make([]uint64, 0, len(witness))
	for w := range witness {
		order = append(order, w)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] > order[j] })
	if len(order) != len(proof) {
		return false
	}
	for i, g := range order {
		nodes[g] = proof[i]
	}
	// Resolve bottom-up.
	pending := make([]uint64, 0, len(nodes))
	for g := range nodes {
		pending = append(pending, g)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i] > pending[j] })
	for _, g := range pending {
		for x := g; x > 1; x >>= 1 {
			parent := x >> 1
			if _, ok := nodes[parent]; ok {
				break
			}
			l, lok := nodes[2*parent]
			r, rok := nodes[2*parent+1]
			if !lok || !rok {
				break
			}
			nodes[parent] = hashPair(l, r)
		}
	}
	got, ok := nodes[1]
	return ok && got == root
}

// VerifyBranch checks a single-leaf branch, geth beacon/merkle style.
func VerifyBranch(root [32]byte, leaf [32]byte, gindex uint64, branch [][32]byte) bool {
	current := leaf
	i := 0
	for g := gindex; g > 1; g >>= 1 {
		if i >= len(branch) {
			return false
		}
		if g&1 == 0 {
			current = hashPair(current, branch[i])
		} else {
			current = hashPair(branch[i], current)
		}
		i++
	}
	return i == len(branch) && current == root
}

// ListBranch merkleizes leaves as an SSZ List[_, limit] and returns the
// list root together with the branch of the leaf at index: the sibling
// path bottom-up through the padded vector tree, with the length mixin
// chunk appended last.
func ListBranch(leaves [][32]byte, limit, index uint64) ([32]byte, [][32]byte, error) {
	if index >= uint64(len(leaves)) {
		return [32]byte{}, nil, errors.Errorf("leaf %d out of range (%d leaves)", index, len(leaves))
	}
	depth := uint(0)
	for size := uint64(1); size < limit; size <<= 1 {
		depth++
	}
	level := make([][32]byte, len(leaves))
	copy(level, leaves)
	var zero [32]byte
	branch := make([][32]byte, 0, depth+1)
	pos := index
	for d := uint(0); d < depth; d++ {
		sib := pos ^ 1
		if sib < uint64(len(level)) {
			branch = append(branch, level[sib])
		} else {
			branch = append(branch, zero)
		}
		next := make([][32]byte, (len(level)+1)/2)
		for i := range next {
			l := level[2*i]
			r := zero
			if 2*i+1 < len(level) {
				r = level[2*i+1]
			}
			next[i] = hashPair(l, r)
		}
		level = next
		zero = hashPair(zero, zero)
		pos >>= 1
	}
	vectorRoot := zero
	if len(level) > 0 {
		vectorRoot = level[0]
	}
	var lenChunk [32]byte
	for i, n := 0, uint64(len(leaves)); i < 8; i++ {
		lenChunk[i] = byte(n >> (8 * i))
	}
	branch = append(branch, lenChunk)
	return hashPair(vectorRoot, lenChunk), branch, nil
}

// BlocksVectorRoot computes the SSZ root of Vector[bytes32, 8192] over the
// raw blocks.ssz content, zero padded when the file is short.
func BlocksVectorRoot(content []byte) ([32]byte, error) {
	if len(content) > SlotsPerPeriod*32 {
		return [32]byte{}, errors.Errorf("blocks vector too long: %d bytes", len(content))
	}
	hh := fastssz.NewHasher()
	idx := hh.Index()
	var chunk [32]byte
	for i := 0; i < SlotsPerPeriod; i++ {
		if (i+1)*32 <= len(content) {
			hh.Append(content[i*32 : (i+1)*32])
		} else if i*32 < len(content) {
			chunk = [32]byte{}
			copy(chunk[:], content[i*32:])
			hh.Append(chunk[:])
		} else {
			chunk = [32]byte{}
			hh.Append(chunk[:])
		}
	}
	hh.Merkleize(idx)
	return hh.HashRoot()
}
