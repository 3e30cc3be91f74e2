package comm

import (
	"errors"
	"sync"

	"github.com/unixpickle/essentials"
)

// A Stream is a uni-directional queue of messages that are
// passed through a Loop.
//
// It is only safe to use a Stream on one Loop at once.
type Stream struct {
	loop    *Loop
	pending []interface{}
}

// An event is a message received on some Stream.
type event struct {
	message interface{}
	stream  *Stream
}

// A Handle is a process Goroutine's mechanism for accessing
// a Loop. Goroutines must not share Handles.
type Handle struct {
	*Loop

	// These fields are empty when the Goroutine is not
	// blocked on any streams.
	pollStreams []*Stream
	pollChan    chan<- *event
}

// Poll blocks until a message arrives on one of the given
// streams and returns it together with the stream it came
// in on.
func (h *Handle) Poll(streams ...*Stream) (interface{}, *Stream) {
	ch := make(chan *event, 1)
	h.modifyHandles(func() {
		if h.pollStreams != nil {
			panic("Handle is shared between Goroutines")
		}
		for _, stream := range streams {
			if len(stream.pending) > 0 {
				msg := stream.pending[0]
				essentials.OrderedDelete(&stream.pending, 0)
				ch <- &event{message: msg, stream: stream}
				return
			}
		}
		h.pollStreams = streams
		h.pollChan = ch
	})
	ev := <-ch
	return ev.message, ev.stream
}

// Push delivers a message to a stream, waking up a polling
// Goroutine if one is blocked on the stream.
//
// This is a non-blocking operation.
func (h *Handle) Push(stream *Stream, msg interface{}) {
	if stream.loop != h.Loop {
		panic("Stream is not associated with the correct Loop")
	}
	h.modifyHandles(func() {
		if h.Loop.deliver(&event{message: msg, stream: stream}) {
			return
		}
		stream.pending = append(stream.pending, msg)
	})
}

// A Loop coordinates a fixed set of process Goroutines
// that communicate purely by message passing.
//
// All Goroutines which access a Loop should be started
// using the Loop.Go() method.
//
// The loop watches the group as a whole: if every process
// is blocked waiting for a message that can never arrive,
// the run is aborted rather than hanging forever.
type Loop struct {
	lock    sync.Mutex
	handles []*Handle

	running  bool
	notifyCh chan struct{}
}

// NewLoop creates an empty Loop.
func NewLoop() *Loop {
	return &Loop{notifyCh: make(chan struct{}, 1)}
}

// Stream creates a new Stream.
func (l *Loop) Stream() *Stream {
	return &Stream{loop: l}
}

// Go runs a function in a Goroutine and passes it a new
// Handle on the Loop.
func (l *Loop) Go(f func(h *Handle)) {
	h := &Handle{Loop: l}
	l.lock.Lock()
	l.handles = append(l.handles, h)
	l.lock.Unlock()
	go func() {
		f(h)
		l.modifyHandles(func() {
			for i, handle := range l.handles {
				if handle == h {
					essentials.UnorderedDelete(&l.handles, i)
					return
				}
			}
			panic("cannot free handle that does not exist")
		})
	}()
}

// Run blocks until every process Goroutine has returned.
//
// It is not safe to run the loop from more than one
// Goroutine at once.
//
// Returns an error if the group deadlocks, i.e. every
// process is waiting to receive and no message is in
// flight.
func (l *Loop) Run() error {
	l.lock.Lock()
	if l.running {
		l.lock.Unlock()
		panic("Loop is already running")
	}
	l.running = true
	l.lock.Unlock()

	defer func() {
		l.lock.Lock()
		l.running = false
		l.lock.Unlock()
	}()

	for range l.notifyCh {
		if shouldContinue, err := l.step(); !shouldContinue {
			return err
		}
	}

	panic("unreachable")
}

// MustRun is like Run, but it panics if the group
// deadlocks.
func (l *Loop) MustRun() {
	if err := l.Run(); err != nil {
		panic(err)
	}
}

// modifyHandles calls f() such that f can safely change
// the loop and handle state, then pokes the run loop so
// it can re-check for completion or deadlock.
func (l *Loop) modifyHandles(f func()) {
	l.lock.Lock()
	defer func() {
		l.lock.Unlock()
		select {
		case l.notifyCh <- struct{}{}:
		default:
		}
	}()
	f()
}

// step checks the state of the group.
//
// If the loop can no longer make progress, the first
// return value is false. If this is due to a deadlock,
// the second return value indicates the error.
func (l *Loop) step() (bool, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if len(l.handles) == 0 {
		return false, nil
	}

	for _, h := range l.handles {
		if h.pollStreams == nil {
			// A process is doing local computation and may
			// still push messages.
			return true, nil
		}
	}

	// Every process is polling. Progress is only possible
	// if a polled stream has a queued message; Push wakes
	// pollers directly, so a queued message can only exist
	// on a stream nobody was polling when it was pushed.
	for _, h := range l.handles {
		for _, stream := range h.pollStreams {
			if len(stream.pending) > 0 {
				msg := stream.pending[0]
				essentials.OrderedDelete(&stream.pending, 0)
				h.pollChan <- &event{message: msg, stream: stream}
				h.pollChan = nil
				h.pollStreams = nil
				return true, nil
			}
		}
	}

	return false, errors.New("deadlock: every process is waiting to receive")
}

// deliver attempts to hand an event to a Goroutine that is
// polling on the event's stream. The caller must hold the
// loop lock.
func (l *Loop) deliver(ev *event) bool {
	for _, h := range l.handles {
		for _, stream := range h.pollStreams {
			if stream == ev.stream {
				h.pollChan <- ev
				h.pollChan = nil
				h.pollStreams = nil
				return true
			}
		}
	}
	return false
}
