package channel

import (
	"context"
	"errors"
	"sync"
)

// Fake is an in-memory Channel for tests. Inbound frames are queued with
// Deliver; everything the orchestrator sends is recorded.
type Fake struct {
	mu     sync.Mutex
	sent   []Frame
	frames chan Frame

	closeOnce sync.Once
	closed    chan struct{}
}

func NewFake() *Fake {
	return &Fake{
		frames: make(chan Frame, 256),
		closed: make(chan struct{}),
	}
}

// Deliver queues an inbound frame as if the remote engine had produced it.
func (f *Fake) Deliver(frame Frame) {
	select {
	case <-f.closed:
	default:
		f.frames <- frame
	}
}

func (f *Fake) Send(_ context.Context, frame Frame) error {
	select {
	case <-f.closed:
		return errors.New("channel closed")
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, frame)
	return nil
}

// Sent returns a copy of every frame sent so far.
func (f *Fake) Sent() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Frame, len(f.sent))
	copy(out, f.sent)
	return out
}

// SentOfType filters sent frames by type.
func (f *Fake) SentOfType(t FrameType) []Frame {
	var out []Frame
	for _, frame := range f.Sent() {
		if frame.Type == t {
			out = append(out, frame)
		}
	}
	return out
}

func (f *Fake) Recv() <-chan Frame { return f.frames }

func (f *Fake) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		close(f.frames)
	})
	return nil
}
