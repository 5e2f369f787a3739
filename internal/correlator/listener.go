package correlator

import (
	"sync"

	"github.com/nerrad567/fimp2ha/internal/infrastructure/mqtt"
)

// Listener is one outstanding interest in inbound messages. It records the
// first message its MatchFunc accepts and ignores any later ones.
type Listener struct {
	// Topic is an MQTT topic filter. Empty means every dispatched message.
	Topic string

	match MatchFunc

	once   sync.Once
	done   chan struct{}
	result Message
}

// NewListener creates a listener for topic accepting messages by match.
func NewListener(topic string, match MatchFunc) *Listener {
	return &Listener{
		Topic: topic,
		match: match,
		done:  make(chan struct{}),
	}
}

// accepts reports whether the listener is interested in msg's topic.
func (l *Listener) accepts(topic string) bool {
	return l.Topic == "" || mqtt.TopicMatches(l.Topic, topic)
}

// offer evaluates msg and records it if it is the first match.
// Returns true only for the message that was recorded.
func (l *Listener) offer(msg Message) bool {
	if !msg.Decoded() || l.match == nil {
		return false
	}

	select {
	case <-l.done:
		return false
	default:
	}

	if !l.matches(msg) {
		return false
	}

	recorded := false
	l.once.Do(func() {
		l.result = msg
		recorded = true
		close(l.done)
	})
	return recorded
}

// matches runs the MatchFunc, treating a panic as no match.
func (l *Listener) matches(msg Message) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return l.match(msg)
}

// Done is closed once a message has been recorded.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Result returns the recorded message, if any.
func (l *Listener) Result() (Message, bool) {
	select {
	case <-l.done:
		return l.result, true
	default:
		return Message{}, false
	}
}
