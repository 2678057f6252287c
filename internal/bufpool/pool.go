// Package bufpool provides size-classed pooling of buf.Bytes so reactor ops
// don't allocate a fresh buffer on every read_at/recv. The size-class
// bucketing (round each request up to the next power of two, one sync.Pool
// per class) follows cloudwego/gopkg's cache/mempool package; unlike that
// package this one hands back a *buf.Bytes rather than a raw []byte plus an
// unsafe footer, since osiris already needs the StableBufferMut wrapper and
// a second representation would just be overhead.
package bufpool

import (
	"sync"

	"github.com/ehrlich-b/osiris-go/buf"
)

const (
	minClassSize = 4 << 10  // 4KiB
	maxClassSize = 4 << 20  // 4MiB; larger requests allocate directly and are never pooled
)

type class struct {
	size int
	pool sync.Pool
}

var classes []*class

func init() {
	for sz := minClassSize; sz <= maxClassSize; sz <<= 1 {
		c := &class{size: sz}
		c.pool.New = func() any {
			return buf.NewBytesZeroed(c.size)
		}
		classes = append(classes, c)
	}
}

// classIndex returns the index into classes of the smallest size class
// whose capacity is at least n.
func classIndex(n int) int {
	idx, size := 0, minClassSize
	for size < n {
		size <<= 1
		idx++
	}
	return idx
}

// Get returns a *buf.Bytes with capacity at least n. Buffers larger than
// maxClassSize are allocated directly (and should not be passed to Put,
// which silently declines to pool them).
func Get(n int) *buf.Bytes {
	if n > maxClassSize {
		return buf.NewBytesZeroed(n)
	}
	i := classIndex(n)
	c := classes[i]
	b := c.pool.Get().(*buf.Bytes)
	b.SetInit(0)
	return b
}

// Put returns b to its size class for reuse. Buffers not originally
// obtained from Get (wrong capacity for any class) are dropped rather than
// pooled, since there is no reliable way to recover which class, if any,
// they belong to.
func Put(b *buf.Bytes) {
	c := b.BytesTotal()
	for _, cl := range classes {
		if cl.size == c {
			cl.pool.Put(b)
			return
		}
	}
}
