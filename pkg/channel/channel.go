package channel

import "context"

// Channel is the opaque bidirectional event stream a session runs over.
// Frames are delivered in arrival order on Recv; the channel closes the
// receive stream after emitting a disconnected lifecycle frame.
type Channel interface {
	Send(ctx context.Context, frame Frame) error
	Recv() <-chan Frame
	Close() error
}
