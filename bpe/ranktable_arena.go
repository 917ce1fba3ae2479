//go:build goexperiment.arenas

package bpe

import "arena"

// Arena-backed token store. All storage lives in a dedicated arena and is
// released in one shot via Close, which is cheaper than letting a 100k+
// entry vocabulary trickle through the GC. AppendInto copies out of the
// arena blob so no arena-backed slice ever escapes to the regular heap.
type arenaStore struct {
	a    *arena.Arena
	blob []byte
	off  []uint32
}

func newTokenStore(pairs []rankedBytes) (tokenStore, error) {
	a := arena.NewArena()
	maxID := uint32(0)
	for _, p := range pairs {
		if p.rank > maxID {
			maxID = p.rank
		}
	}
	size := int(maxID) + 1
	byID := make([][]byte, size)
	total := 0
	for _, p := range pairs {
		if byID[int(p.rank)] == nil {
			byID[int(p.rank)] = p.bytes
			total += len(p.bytes)
		}
	}

	blob := arena.MakeSlice[byte](a, total, total)
	off := arena.MakeSlice[uint32](a, size+1, size+1)
	pos := 0
	for i := 0; i < size; i++ {
		off[i] = uint32(pos)
		if b := byID[i]; b != nil {
			copy(blob[pos:pos+len(b)], b)
			pos += len(b)
		}
	}
	off[size] = uint32(pos)
	return &arenaStore{a: a, blob: blob, off: off}, nil
}

func (s *arenaStore) AppendInto(dst *[]byte, id uint32) bool {
	if int(id) >= len(s.off)-1 {
		return false
	}
	a := s.off[id]
	b := s.off[id+1]
	if a == b {
		return false
	}
	*dst = append(*dst, s.blob[a:b]...)
	return true
}

func (s *arenaStore) Close() { s.a.Free() }
