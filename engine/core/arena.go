package core

import (
	"fmt"
	"unsafe"
)

// Arena is a bump allocator over chained fixed-size blocks. The engine
// keeps three of them: the app arena (process lifetime), the frame arena
// (reset every loop iteration) and the swapchain arena (reset on every
// swapchain recreation).
//
// Allocation never fails after construction: when a follow-up block
// cannot be grown the allocator hands back a zero-initialized stub so
// non-critical callers keep running (ZII). Only the initial reserve can
// fail, and only at startup.
type Arena struct {
	blockSize int
	blocks    [][]byte
	current   int // index of the block being bumped
	offset    int // bump offset inside the current block
}

const defaultArenaAlign = 16

// NewArena reserves the initial block. blockSize <= 0 falls back to 1 MiB.
func NewArena(blockSize int) (*Arena, error) {
	if blockSize <= 0 {
		blockSize = 1 << 20
	}
	initial, ok := reserveBlock(blockSize)
	if !ok {
		return nil, fmt.Errorf("arena reserve of %d bytes: %w", blockSize, ErrInitFailure)
	}
	return &Arena{
		blockSize: blockSize,
		blocks:    [][]byte{initial},
	}, nil
}

func reserveBlock(size int) (block []byte, ok bool) {
	defer func() {
		if recover() != nil {
			block, ok = nil, false
		}
	}()
	return make([]byte, size), true
}

// Alloc returns n zeroed bytes with default alignment.
func (a *Arena) Alloc(n int) []byte {
	return a.AllocAligned(n, defaultArenaAlign)
}

// AllocAligned returns n zeroed bytes aligned to align, which must be a
// power of two. Oversized requests get a dedicated block. On exhaustion
// a detached zeroed stub is returned rather than nil.
func (a *Arena) AllocAligned(n, align int) []byte {
	if n <= 0 {
		return nil
	}
	if n > a.blockSize {
		block, ok := reserveBlock(n)
		if !ok {
			LogWarn("arena: oversized allocation of %d bytes failed, returning stub", n)
			return make([]byte, 0, 0)
		}
		// Dedicated blocks are inserted before the bump block so the
		// cursor keeps pointing at a block with free space.
		a.blocks = append(a.blocks[:a.current], append([][]byte{block}, a.blocks[a.current:]...)...)
		a.current++
		return block
	}

	block := a.blocks[a.current]
	offset := alignUp(a.offset, align)
	if offset+n > len(block) {
		next, ok := reserveBlock(a.blockSize)
		if !ok {
			LogWarn("arena: block grow failed, returning zero stub for %d bytes", n)
			return make([]byte, n)
		}
		a.blocks = append(a.blocks, next)
		a.current = len(a.blocks) - 1
		a.offset = 0
		block = next
		offset = 0
	}
	a.offset = offset + n
	out := block[offset : offset+n : offset+n]
	clear(out)
	return out
}

// Reset rewinds the arena to its first block. The memory stays reserved;
// previously handed-out slices must not be used afterwards.
func (a *Arena) Reset() {
	a.blocks = a.blocks[:1]
	a.current = 0
	a.offset = 0
}

// Used reports the bytes bumped in the current block. Test hook.
func (a *Arena) Used() int {
	return a.offset
}

// BlockCount reports how many blocks are currently chained.
func (a *Arena) BlockCount() int {
	return len(a.blocks)
}

func alignUp(v, align int) int {
	return (v + align - 1) &^ (align - 1)
}

// ArenaNew allocates a zeroed T from the arena.
func ArenaNew[T any](a *Arena) *T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 {
		return &zero
	}
	raw := a.AllocAligned(size, defaultArenaAlign)
	if len(raw) < size {
		// ZII stub path.
		return &zero
	}
	return (*T)(unsafe.Pointer(&raw[0]))
}

// ArenaSlice allocates a zeroed []T of length n from the arena.
func ArenaSlice[T any](a *Arena, n int) []T {
	if n <= 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	raw := a.AllocAligned(size*n, defaultArenaAlign)
	if len(raw) < size*n {
		return make([]T, n)
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), n)
}
