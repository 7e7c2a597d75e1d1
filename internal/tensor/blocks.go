package tensor

import "github.com/samcharles93/nibble/pkg/quant"

// BlockSize is the number of elements per block. It is even so a block
// never shares a packed byte with its neighbour.
const BlockSize = 32

// BlockIter walks a Storage one block at a time in index order. It is
// single pass: once exhausted, Next keeps returning false. Call
// Storage.Blocks again for a new traversal.
type BlockIter[S quant.Scheme[S, E], E quant.Float] struct {
	s    *Storage[S, E]
	next int
}

// Blocks returns a fresh iterator over s.
func (s *Storage[S, E]) Blocks() *BlockIter[S, E] {
	return &BlockIter[S, E]{s: s}
}

// Next returns the next block, or false when every element has been
// visited.
func (it *BlockIter[S, E]) Next() (Block[S, E], bool) {
	if it.next >= it.s.n {
		return Block[S, E]{}, false
	}
	start := it.next
	n := min(BlockSize, it.s.n-start)
	it.next += n
	return Block[S, E]{s: it.s, start: start, n: n}, true
}

// Block is a window of consecutive elements. Element access is read-modify-
// write on the packed byte, so two elements sharing a byte are updated
// independently.
type Block[S quant.Scheme[S, E], E quant.Float] struct {
	s     *Storage[S, E]
	start int
	n     int
}

// Start returns the storage index of the block's first element.
func (b Block[S, E]) Start() int {
	return b.start
}

// Len returns the number of elements in the block.
func (b Block[S, E]) Len() int {
	return b.n
}

// Get returns element j of the block.
func (b Block[S, E]) Get(j int) E {
	b.check(j)
	return b.s.Get(b.start + j)
}

// Set overwrites element j of the block.
func (b Block[S, E]) Set(j int, v E) {
	b.check(j)
	b.s.Set(b.start+j, v)
}

// Update replaces every element x in the block with fn(i, x), where i is the
// storage index, in index order.
func (b Block[S, E]) Update(fn func(i int, x E) E) {
	for j := 0; j < b.n; j++ {
		i := b.start + j
		b.s.Set(i, fn(i, b.s.Get(i)))
	}
}

func (b Block[S, E]) check(j int) {
	if j < 0 || j >= b.n {
		panic("block index out of range")
	}
}
