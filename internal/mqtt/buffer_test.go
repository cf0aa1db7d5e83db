package mqtt

import (
	"testing"
)

func pushN(rb *ringBuffer, from, to int) {
	for i := from; i < to; i++ {
		rb.push(bufferedMsg{topic: "cane/test/events", payload: []byte{byte(i)}})
	}
}

func payloadBytes(msgs []bufferedMsg) []byte {
	out := make([]byte, len(msgs))
	for i, m := range msgs {
		out[i] = m.payload[0]
	}
	return out
}

func TestRingBufferDrainOrder(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushed   int
		want     []byte
	}{
		{"empty", 5, 0, nil},
		{"partial", 5, 3, []byte{0, 1, 2}},
		{"full", 5, 5, []byte{0, 1, 2, 3, 4}},
		{"overflow keeps newest", 5, 8, []byte{3, 4, 5, 6, 7}},
		{"wraps twice", 3, 7, []byte{4, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := newRingBuffer(tt.capacity)
			pushN(rb, 0, tt.pushed)

			got := rb.drainAll()
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil drain, got %d items", len(got))
				}
				return
			}
			if string(payloadBytes(got)) != string(tt.want) {
				t.Errorf("got %v, want %v", payloadBytes(got), tt.want)
			}
			if rb.len() != 0 {
				t.Errorf("expected empty buffer after drain, len %d", rb.len())
			}
		})
	}
}

func TestRingBufferDroppedCount(t *testing.T) {
	rb := newRingBuffer(4)
	pushN(rb, 0, 10)
	if rb.dropped != 6 {
		t.Errorf("expected 6 dropped, got %d", rb.dropped)
	}
	if !rb.overflow {
		t.Error("expected overflow flag")
	}

	rb.drainAll()
	if rb.dropped != 0 || rb.overflow {
		t.Errorf("drain should reset overflow state, dropped=%d overflow=%v", rb.dropped, rb.overflow)
	}
}

func TestRingBufferReusableAfterDrain(t *testing.T) {
	rb := newRingBuffer(5)
	pushN(rb, 0, 3)
	rb.drainAll()

	pushN(rb, 10, 14)
	got := rb.drainAll()
	want := []byte{10, 11, 12, 13}
	if string(payloadBytes(got)) != string(want) {
		t.Errorf("got %v, want %v", payloadBytes(got), want)
	}
}

func TestRingBufferDefaultCapacity(t *testing.T) {
	rb := newRingBuffer(0)
	if rb.capacity != DefaultBufferSize {
		t.Errorf("expected capacity %d, got %d", DefaultBufferSize, rb.capacity)
	}
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(10)
	rb.push(bufferedMsg{
		topic:    "cane/test/system",
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})

	got := rb.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	m := got[0]
	if m.topic != "cane/test/system" || string(m.payload) != `{"test":true}` || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}
