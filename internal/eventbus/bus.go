package eventbus

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type Type string

const (
	TaskCreated            Type = "task.created"
	TaskClaimed            Type = "task.claimed"
	TaskCompleted          Type = "task.completed"
	TaskApproved           Type = "task.approved"
	TaskRevisionRequested  Type = "task.revision_requested"
	TaskRejected           Type = "task.rejected"
	TaskReassigned         Type = "task.reassigned"
	TaskCancelled          Type = "task.cancelled"
	AssistantStatusChanged Type = "assistant.status_changed"
)

type Event struct {
	ID          string
	Type        Type
	TaskID      string
	ClientID    string
	AssistantID string
	Metadata    map[string]string
	CreatedAt   time.Time
}

type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan *Event
}

func New() *Bus {
	return &Bus{
		subscribers: make(map[string]chan *Event),
	}
}

func (b *Bus) Subscribe(bufSize int) (string, <-chan *Event) {
	id := ulid.Make().String()
	ch := make(chan *Event, bufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// buffer full, drop event for this subscriber
		}
	}
}

func (b *Bus) PublishNew(eventType Type, taskID, clientID, assistantID string, metadata map[string]string) {
	b.Publish(&Event{
		ID:          ulid.Make().String(),
		Type:        eventType,
		TaskID:      taskID,
		ClientID:    clientID,
		AssistantID: assistantID,
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	})
}
