package ssz

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func chunk(b byte) [32]byte {
	var out [32]byte
	out[0] = b
	return out
}

func TestTreeFromChunksRoot(t *testing.T) {
	// Two leaves: root = H(a || b).
	a, b := chunk(1), chunk(2)
	tree := NewTreeFromChunks([][32]byte{a, b})
	want := sha256.Sum256(append(append([]byte{}, a[:]...), b[:]...))
	require.Equal(t, want, tree.Root())
}

func TestMultiproofRoundTrip(t *testing.T) {
	chunks := make([][32]byte, 8)
	for i := range chunks {
		chunks[i] = chunk(byte(i + 1))
	}
	tree := NewTreeFromChunks(chunks)

	tests := []struct {
		name    string
		leafIdx []uint64
	}{
		{"single leaf", []uint64{0}},
		{"two siblings share a parent", []uint64{2, 3}},
		{"spread leaves", []uint64{0, 5, 7}},
		{"all leaves", []uint64{0, 1, 2, 3, 4, 5, 6, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gindices := make([]uint64, len(tt.leafIdx))
			leaves := map[uint64][32]byte{}
			for i, li := range tt.leafIdx {
				g := tree.LeafGIndex(li)
				gindices[i] = g
				leaves[g] = chunks[li]
			}
			proof, order, err := tree.Multiproof(gindices)
			require.NoError(t, err)
			require.Equal(t, len(order), len(proof))
			require.Equal(t, true, VerifyMultiproof(tree.Root(), proof, leaves))

			// A corrupted witness must not verify.
			if len(proof) > 0 {
				proof[0][0] ^= 0xFF
				require.Equal(t, false, VerifyMultiproof(tree.Root(), proof, leaves))
			}
		})
	}
}

func TestMultiproofSharedAncestorsDeduplicated(t *testing.T) {
	chunks := make([][32]byte, 8)
	for i := range chunks {
		chunks[i] = chunk(byte(i + 1))
	}
	tree := NewTreeFromChunks(chunks)

	// Sibling leaves 0 and 1 need no witness below their parent: only the
	// parent's sibling and the far subtree remain.
	proof, _, err := tree.Multiproof([]uint64{tree.LeafGIndex(0), tree.LeafGIndex(1)})
	require.NoError(t, err)
	require.Equal(t, 2, len(proof))
}

func TestVerifyBranch(t *testing.T) {
	chunks := make([][32]byte, 4)
	for i := range chunks {
		chunks[i] = chunk(byte(i + 1))
	}
	tree := NewTreeFromChunks(chunks)
	g := tree.LeafGIndex(2)
	proof, _, err := tree.Multiproof([]uint64{g})
	require.NoError(t, err)
	require.Equal(t, true, VerifyBranch(tree.Root(), chunks[2], g, proof))
	require.Equal(t, false, VerifyBranch(tree.Root(), chunks[3], g, proof))
}

func TestCompositeTreeBuild(t *testing.T) {
	// Graft a 4-leaf subtree under gindex 3 of a 2-leaf outer tree.
	sub := NewTreeFromChunks([][32]byte{chunk(1), chunk(2), chunk(3), chunk(4)})
	tree := NewTree()
	tree.Set(2, chunk(9))
	for i := uint64(0); i < 4; i++ {
		v, err := sub.Node(4 + i)
		require.NoError(t, err)
		tree.Set(12+i, v)
	}
	tree.Build()

	got, err := tree.Node(3)
	require.NoError(t, err)
	require.Equal(t, sub.Root(), got)

	root := tree.Root()
	c9 := chunk(9)
	want := sha256.Sum256(append(append([]byte{}, c9[:]...), got[:]...))
	require.Equal(t, want, root)
}

func TestListBranchMatchesManualHash(t *testing.T) {
	leaves := [][32]byte{chunk(1), chunk(2), chunk(3)}
	root, branch, err := ListBranch(leaves, 4, 1)
	require.NoError(t, err)
	// depth 2 vector + length mixin.
	require.Equal(t, 3, len(branch))

	h01 := sha256.Sum256(append(append([]byte{}, leaves[0][:]...), leaves[1][:]...))
	var zero [32]byte
	h23 := sha256.Sum256(append(append([]byte{}, leaves[2][:]...), zero[:]...))
	vec := sha256.Sum256(append(append([]byte{}, h01[:]...), h23[:]...))
	var lenChunk [32]byte
	lenChunk[0] = 3
	want := sha256.Sum256(append(append([]byte{}, vec[:]...), lenChunk[:]...))
	require.Equal(t, want, root)

	// Walk the branch from leaf 1: sibling chunk(1), then h23, then mixin.
	require.Equal(t, chunk(1), branch[0])
	require.Equal(t, h23, branch[1])
	require.Equal(t, lenChunk, branch[2])

	_, _, err = ListBranch(leaves, 4, 3)
	require.Error(t, err)
}

func TestBlocksVectorRootLimits(t *testing.T) {
	_, err := BlocksVectorRoot(make([]byte, SlotsPerPeriod*32+1))
	require.Error(t, err)
	_, err = BlocksVectorRoot(nil)
	require.NoError(t, err)
}
