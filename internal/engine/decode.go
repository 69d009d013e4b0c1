package engine

import "io"

// readBEUint interprets the first n bytes of b as a big-endian unsigned
// integer, most significant byte first. n must be between 1 and 8
// inclusive and b must have at least n bytes.
func readBEUint(b []byte, n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// writeBEUint encodes x into n bytes of dst, most significant byte
// first. Used only by tests exercising the big-endian round trip
// property; the engine itself only ever decodes.
func writeBEUint(dst []byte, x uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		dst[i] = byte(x)
		x >>= 8
	}
}

// decoder is a bounded cursor over a memory-mapped region accessed
// through io.ReaderAt (the interface golang.org/x/exp/mmap.ReaderAt
// satisfies). It replaces the source's raw byte-pointer walk: the
// cursor position is explicit and every read is bounds-checked by the
// ReaderAt implementation rather than by pointer arithmetic.
type decoder struct {
	src io.ReaderAt
	pos int64
}

func newDecoder(src io.ReaderAt, pos int64) *decoder {
	return &decoder{src: src, pos: pos}
}

// readUint reads n big-endian bytes at the cursor and advances it by n.
func (d *decoder) readUint(n int) uint64 {
	var buf [8]byte
	_, _ = d.src.ReadAt(buf[:n], d.pos)
	d.pos += int64(n)
	return readBEUint(buf[:n], n)
}

// advance moves the cursor forward by n bytes without reading. Used to
// reproduce the run-body stride exactly, bug included — see
// RunIterator.ConsumeRun.
func (d *decoder) advance(n int) {
	d.pos += int64(n)
}

func (d *decoder) position() int64 {
	return d.pos
}

func (d *decoder) seek(pos int64) {
	d.pos = pos
}
