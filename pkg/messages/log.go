package messages

import (
	"sync"
)

// Log is the append-only, ordered list of chat entries of a session.
// Only Reset replaces its content.
type Log struct {
	mu       sync.RWMutex
	messages []Message
}

func NewLog(initial ...Message) *Log {
	l := &Log{}
	l.messages = append(l.messages, initial...)
	return l
}

func (l *Log) Append(m Message) {
	l.mu.Lock()
	l.messages = append(l.messages, m)
	l.mu.Unlock()
}

// Messages returns a copy of the log, oldest first.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ret := make([]Message, len(l.messages))
	copy(ret, l.messages)
	return ret
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

func (l *Log) Last() (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.messages) == 0 {
		return Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}

// LastDownload returns the newest download fragment in the log.
func (l *Log) LastDownload() (Fragment, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.messages) - 1; i >= 0; i-- {
		if f, ok := l.messages[i].Download(); ok {
			return f, true
		}
	}
	return Fragment{}, false
}

// Reset replaces the whole log with the given messages.
func (l *Log) Reset(seed ...Message) {
	l.mu.Lock()
	l.messages = append([]Message(nil), seed...)
	l.mu.Unlock()
}
