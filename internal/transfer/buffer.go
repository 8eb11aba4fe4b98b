package transfer

import "sync"

// ChunkSize is the read size used for every transfer.
const ChunkSize = 32 * 1024

// bufferPool reuses chunk buffers across transfers.
type bufferPool struct {
	pool sync.Pool
	size int
}

func newBufferPool(size int) *bufferPool {
	return &bufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		},
		size: size,
	}
}

// get returns a full-length buffer. Callers return it with put.
func (bp *bufferPool) get() []byte {
	bufPtr := bp.pool.Get().(*[]byte)
	return (*bufPtr)[:bp.size]
}

// put returns buf to the pool. Buffers of the wrong size are dropped.
func (bp *bufferPool) put(buf []byte) {
	if cap(buf) != bp.size {
		return
	}
	buf = buf[:bp.size]
	bp.pool.Put(&buf)
}
