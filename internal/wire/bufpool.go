package wire

import "sync"

// BytePool recycles the scratch buffers frames are read into and
// assembled in. Most gameplay messages are well under a kilobyte of
// JSON, but a frame may legally approach the configured payload cap;
// buffers that grew far past the common case are dropped on Put rather
// than pinned in the pool for its lifetime.
type BytePool struct {
	keepCap int
	pool    sync.Pool
}

// NewBytePool creates a pool whose fresh buffers start at defaultCap
// capacity. Buffers that grew beyond 16x defaultCap are not retained.
func NewBytePool(defaultCap int) *BytePool {
	p := &BytePool{keepCap: 16 * defaultCap}
	p.pool.New = func() any {
		b := make([]byte, 0, defaultCap)
		return &b
	}
	return p
}

// Get returns a buffer of length size. Contents are unspecified; every
// caller fills the full length before reading it back.
func (p *BytePool) Get(size int) []byte {
	bp := p.pool.Get().(*[]byte)
	if cap(*bp) < size {
		p.pool.Put(bp)
		return make([]byte, size)
	}
	return (*bp)[:size]
}

// Put returns b for reuse. Stored as a pointer so re-pooling does not
// allocate a fresh slice header; oversized buffers are dropped.
func (p *BytePool) Put(b []byte) {
	if b == nil || cap(b) > p.keepCap {
		return
	}
	b = b[:0]
	p.pool.Put(&b)
}
