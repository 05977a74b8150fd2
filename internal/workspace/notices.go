package workspace

import (
	"sync"
	"time"
)

// Level grades a notice.
type Level string

// Notice levels.
const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-facing notification.
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

const maxNotices = 50

// Notices is a bounded FIFO; the oldest entry is dropped when full.
type Notices struct {
	mu    sync.Mutex
	now   func() time.Time
	items []Notice
}

func newNotices(now func() time.Time) *Notices {
	return &Notices{now: now}
}

// Push appends a notice.
func (n *Notices) Push(level Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.items) == maxNotices {
		n.items = n.items[1:]
	}
	n.items = append(n.items, Notice{Level: level, Message: message, At: n.now()})
}

// Drain returns and clears pending notices.
func (n *Notices) Drain() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.items
	n.items = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}
