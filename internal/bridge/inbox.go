package bridge

import (
	"encoding/json"
	"sync"
)

// inbox is an unbounded FIFO in front of a listener channel, so a slow
// consumer never stalls the read pump (and with it every pending Call).
type inbox struct {
	mu     sync.Mutex
	queue  []json.RawMessage
	closed bool
	notify chan struct{}
	out    chan json.RawMessage
}

func newInbox() *inbox {
	ib := &inbox{
		notify: make(chan struct{}, 1),
		out:    make(chan json.RawMessage),
	}
	go ib.pump()
	return ib
}

func (ib *inbox) push(payload json.RawMessage) {
	ib.mu.Lock()
	if ib.closed {
		ib.mu.Unlock()
		return
	}
	ib.queue = append(ib.queue, payload)
	ib.mu.Unlock()
	ib.wake()
}

// close lets queued payloads drain, then closes out.
func (ib *inbox) close() {
	ib.mu.Lock()
	ib.closed = true
	ib.mu.Unlock()
	ib.wake()
}

func (ib *inbox) wake() {
	select {
	case ib.notify <- struct{}{}:
	default:
	}
}

func (ib *inbox) pump() {
	defer close(ib.out)
	for {
		ib.mu.Lock()
		if len(ib.queue) == 0 {
			closed := ib.closed
			ib.mu.Unlock()
			if closed {
				return
			}
			<-ib.notify
			continue
		}
		next := ib.queue[0]
		ib.queue[0] = nil
		ib.queue = ib.queue[1:]
		ib.mu.Unlock()

		ib.out <- next
	}
}
