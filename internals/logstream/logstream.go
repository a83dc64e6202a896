// Package logstream implements the per-task broadcast channel that carries
// human readable step events from a running task to any number of observers.
//
// Subscribers that join mid-task only see events emitted after they joined;
// there is no replay buffer. The stream is closed by publishing the reserved
// Sentinel value exactly once, after which further publishes are no-ops.
package logstream

import "sync"

// Sentinel is the reserved terminal marker. It is delivered as the final
// event text of every stream and never appears as ordinary log text.
const Sentinel = "[DONE]"

// subscriberBuffer bounds how far a slow subscriber may lag before events
// are dropped for it. Producers never block on subscribers.
const subscriberBuffer = 128

type Event struct {
	TaskID string `json:"taskId"`
	Seq    uint64 `json:"seq"`
	Text   string `json:"text"`
}

type Stream struct {
	taskID string

	mu     sync.Mutex
	seq    uint64
	subs   map[chan Event]struct{}
	closed bool
}

func New(taskID string) *Stream {
	return &Stream{
		taskID: taskID,
		subs:   make(map[chan Event]struct{}),
	}
}

func (s *Stream) TaskID() string {
	return s.taskID
}

// Publish fans an event out to all current subscribers. Publishing to a
// closed stream is a no-op. A subscriber whose buffer is full misses the
// event; delivery is at-most-once, sequence numbers stay gapless at the
// stream level.
func (s *Stream) Publish(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.broadcast(text)
}

// Close emits the sentinel as the final event and tears the stream down.
// Safe to call more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.broadcast(Sentinel)
	s.closed = true
	for ch := range s.subs {
		close(ch)
	}
	s.subs = make(map[chan Event]struct{})
}

// Subscribe registers an observer. The returned cancel func detaches it.
// Subscribing to a closed stream yields an already-closed channel whose only
// pending event is the sentinel.
func (s *Stream) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if s.closed {
		// s.seq still holds the sentinel's number from Close, so every
		// late joiner observes the same terminal event.
		ch <- Event{TaskID: s.taskID, Seq: s.seq, Text: Sentinel}
		close(ch)
		return ch, func() {}
	}

	s.subs[ch] = struct{}{}
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *Stream) broadcast(text string) {
	s.seq++
	event := Event{TaskID: s.taskID, Seq: s.seq, Text: text}
	for ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
