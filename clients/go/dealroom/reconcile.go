package dealroom

import (
	"sync"
	"time"
)

// DefaultReconcileWindow bounds the content+time fallback match. Matching
// by echoed temp_id is exact; the window only matters when the echo is
// missing (e.g. the message came back through another connection).
const DefaultReconcileWindow = 5 * time.Second

// Entry is one displayed message: either a provisional local echo or a
// canonical server message.
type Entry struct {
	Provisional bool
	TempID      string
	ClientTime  time.Time
	Message     Message
}

// Timeline reconciles optimistic local sends against server-confirmed
// messages for one chat. The invariant it maintains: one entry per
// logical message, never a provisional and its canonical twin together.
type Timeline struct {
	mu      sync.Mutex
	selfID  uint64
	window  time.Duration
	entries []Entry
}

func NewTimeline(selfID uint64, window time.Duration) *Timeline {
	if window <= 0 {
		window = DefaultReconcileWindow
	}
	return &Timeline{selfID: selfID, window: window}
}

// AddProvisional records the local echo shown at submit time.
func (t *Timeline) AddProvisional(tempID, chatID, content string) {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{
		Provisional: true,
		TempID:      tempID,
		ClientTime:  now,
		Message: Message{
			ChatID:   chatID,
			SenderID: t.selfID,
			Content:  content,
			SentAt:   now,
		},
	})
}

// ApplyCanonical folds a server-confirmed message in. An echoed temp_id
// replaces its provisional entry exactly; without the echo, a provisional
// entry from self with equal content inside the window is taken as the
// twin. Anything else is appended. Duplicate deliveries of the same
// canonical id are ignored.
func (t *Timeline) ApplyCanonical(msg Message, tempID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if !t.entries[i].Provisional && t.entries[i].Message.ID == msg.ID {
			return
		}
	}

	if tempID != "" {
		for i := range t.entries {
			if t.entries[i].Provisional && t.entries[i].TempID == tempID {
				t.entries[i] = Entry{Message: msg}
				return
			}
		}
	}

	if msg.SenderID == t.selfID {
		for i := range t.entries {
			e := &t.entries[i]
			if !e.Provisional || e.Message.Content != msg.Content {
				continue
			}
			delta := msg.SentAt.Sub(e.ClientTime)
			if delta < 0 {
				delta = -delta
			}
			if delta < t.window {
				t.entries[i] = Entry{Message: msg}
				return
			}
		}
	}

	t.entries = append(t.entries, Entry{Message: msg})
}

// Rollback removes a failed provisional entry and hands back its content
// so the UI can restore the input for a user-initiated retry.
func (t *Timeline) Rollback(tempID string) (content string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		if t.entries[i].Provisional && t.entries[i].TempID == tempID {
			content = t.entries[i].Message.Content
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return content, true
		}
	}
	return "", false
}

// Entries returns a snapshot of the displayed list.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
