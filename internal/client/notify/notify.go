// Package notify carries user-facing messages from the stores to whatever
// front end is listening. Publishing never blocks the caller.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/coursestore/internal/logging"
)

type Level int

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is one message for the user.
type Notification struct {
	Level   Level
	Message string
}

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Notifier fans notifications out to subscribers.
type Notifier struct {
	mu     sync.Mutex
	subs   map[int]chan Notification
	nextID int
	buffer int
	log    logging.Logger
}

// New returns a Notifier with DefaultBuffer slots per subscriber.
func New(log logging.Logger) *Notifier {
	return NewWithBuffer(log, DefaultBuffer)
}

func NewWithBuffer(log logging.Logger, buffer int) *Notifier {
	if log == nil {
		log = logging.Discard()
	}
	if buffer < 1 {
		buffer = 1
	}
	return &Notifier{subs: make(map[int]chan Notification), buffer: buffer, log: log}
}

// Publish delivers n to every subscriber. A subscriber whose buffer is full
// misses n; the drop is logged.
func (n *Notifier) Publish(msg Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, ch := range n.subs {
		select {
		case ch <- msg:
		default:
			n.log.Warn(context.Background(), "notification dropped", "subscriber", id, "message", msg.Message)
		}
	}
}

// Info publishes an informational message.
func (n *Notifier) Info(format string, args ...any) {
	n.Publish(Notification{Level: LevelInfo, Message: fmt.Sprintf(format, args...)})
}

// Error publishes an error message.
func (n *Notifier) Error(format string, args ...any) {
	n.Publish(Notification{Level: LevelError, Message: fmt.Sprintf(format, args...)})
}

// Subscribe registers a new listener. cancel unregisters it and closes the
// channel; it is safe to call more than once.
func (n *Notifier) Subscribe() (<-chan Notification, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan Notification, n.buffer)
	n.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}
