package logg

import "sync"

// Buffer keeps the most recent encoded log messages for views that redraw from scratch.
type Buffer struct {
	mu    sync.Mutex
	data  [][]byte
	next  int
	count int
}

func NewBuffer(size int) *Buffer {
	if size < 1 {
		size = 1
	}
	return &Buffer{data: make([][]byte, size)}
}

func (b *Buffer) WriteMessage(msg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[b.next] = msg
	b.next = (b.next + 1) % len(b.data)
	if b.count < len(b.data) {
		b.count++
	}
}

// ReadLastMessages returns up to n newest messages, oldest first.
func (b *Buffer) ReadLastMessages(n int) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	n = max(min(n, b.count), 0)
	out := make([][]byte, 0, n)
	start := b.next - n + len(b.data)
	for i := 0; i < n; i++ {
		out = append(out, b.data[(start+i)%len(b.data)])
	}
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
