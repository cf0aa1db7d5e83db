package mqtt

import "github.com/sweeney/smartcane/internal/log"

// DefaultBufferSize is how many messages are kept while disconnected.
const DefaultBufferSize = 100

// bufferedMsg is a serialized message waiting for the broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the newest capacity messages while the broker is away.
// When full, a push overwrites the oldest entry. Not safe for concurrent
// use; RealPublisher guards it with its mutex.
type ringBuffer struct {
	buf      []bufferedMsg
	capacity int
	start    int // index of the oldest entry
	count    int
	dropped  int  // overwritten since the last drain
	overflow bool // set on the first overwrite, cleared by drainAll
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &ringBuffer{
		buf:      make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	if r.count < r.capacity {
		r.buf[(r.start+r.count)%r.capacity] = msg
		r.count++
		return
	}
	if !r.overflow {
		log.Warn("mqtt buffer full, dropping oldest", "capacity", r.capacity)
		r.overflow = true
	}
	r.dropped++
	r.buf[r.start] = msg
	r.start = (r.start + 1) % r.capacity
}

// drainAll returns the buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	out := make([]bufferedMsg, 0, r.count)
	end := r.start + r.count
	if end <= r.capacity {
		out = append(out, r.buf[r.start:end]...)
	} else {
		out = append(out, r.buf[r.start:]...)
		out = append(out, r.buf[:end-r.capacity]...)
	}
	if r.overflow {
		log.Info("mqtt buffer drained after overflow", "replayed", len(out), "dropped", r.dropped)
	}

	clear(r.buf)
	r.start, r.count, r.dropped, r.overflow = 0, 0, 0, false
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
