package card

import "sync"

// Buffer is an opaque handle to a byte slice the Context returned to a
// caller (e.g. decrypted private details, a signed payload). It carries
// no exported fields; callers pass it back to Free and otherwise treat
// it as opaque, mirroring the owned-buffer model in spec.md §5.
type Buffer struct {
	data []byte
}

// Bytes returns the buffer's contents.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// bufferTable is the per-Context registry of live buffer handles. It is
// a separate small mutex from Context.mu on purpose: wiping and freeing
// a buffer never needs to hold the Context's own state lock, mirroring
// the teacher's pkg/fabric.Table, which also keeps its map under its
// own lock rather than borrowing a wider one.
type bufferTable struct {
	mu      sync.Mutex
	buffers map[*Buffer]struct{}
}

func newBufferTable() *bufferTable {
	return &bufferTable{buffers: make(map[*Buffer]struct{})}
}

func (t *bufferTable) track(b *Buffer) *Buffer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buffers[b] = struct{}{}
	return b
}

func (t *bufferTable) release(b *Buffer) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.buffers[b]; !ok {
		return false
	}
	delete(t.buffers, b)
	wipe(b.data)
	return true
}

func (t *bufferTable) freeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for b := range t.buffers {
		wipe(b.data)
	}
	t.buffers = make(map[*Buffer]struct{})
}

// newBuffer wraps data in a tracked Buffer handle.
func (c *Context) newBuffer(data []byte) *Buffer {
	return c.buffers.track(&Buffer{data: data})
}

// Free releases a buffer previously returned by the Context. Freeing an
// unknown buffer, or freeing the same buffer twice, is a no-op — it must
// not panic. Freeing the Context itself (passing c) destroys it, per
// spec.md §5's "freeing an address equal to the Context is interpreted
// as Context destruction".
func (c *Context) Free(h interface{}) {
	if h == c {
		c.Destroy()
		return
	}
	if b, ok := h.(*Buffer); ok && b != nil {
		c.buffers.release(b)
	}
}
