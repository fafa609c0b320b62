// Package logger provides a thread-safe in-memory log of recent service
// events, surfaced over the HTTP API for operators.
package logger

import (
	"sync"
	"time"
)

// Message is a single logged event.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Level     string    `json:"level"` // info, warning, error
}

// Logger keeps the most recent messages in a fixed-size ring.
type Logger struct {
	mu    sync.RWMutex
	ring  []Message
	next  int
	count int
}

// New creates a logger retaining up to size messages.
func New(size int) *Logger {
	if size <= 0 {
		size = 100
	}
	return &Logger{ring: make([]Message, size)}
}

// Log records a message at the given level.
func (l *Logger) Log(level, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ring[l.next] = Message{
		Timestamp: time.Now(),
		Text:      text,
		Level:     level,
	}
	l.next = (l.next + 1) % len(l.ring)
	if l.count < len(l.ring) {
		l.count++
	}
}

// Info logs an info-level message.
func (l *Logger) Info(text string) { l.Log("info", text) }

// Warning logs a warning-level message.
func (l *Logger) Warning(text string) { l.Log("warning", text) }

// Error logs an error-level message.
func (l *Logger) Error(text string) { l.Log("error", text) }

// GetRecent returns up to n messages, newest first.
func (l *Logger) GetRecent(n int) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > l.count {
		n = l.count
	}
	if n <= 0 {
		return []Message{}
	}

	out := make([]Message, n)
	for i := 0; i < n; i++ {
		idx := (l.next - 1 - i + len(l.ring)*2) % len(l.ring)
		out[i] = l.ring[idx]
	}
	return out
}
