package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taskhive/taskhive/internal/eventbus"
	"github.com/taskhive/taskhive/internal/task"
)

// Dispatcher turns lifecycle events into push notifications for the
// party waiting on the other side: clients hear about progress on their
// tasks, assistants hear about verdicts and assignments.
type Dispatcher struct {
	bus      *eventbus.Bus
	taskRepo task.Repository
	sender   *Sender
}

func NewDispatcher(bus *eventbus.Bus, taskRepo task.Repository, sender *Sender) *Dispatcher {
	return &Dispatcher{bus: bus, taskRepo: taskRepo, sender: sender}
}

func (d *Dispatcher) Start(ctx context.Context) {
	subID, ch := d.bus.Subscribe(256)
	defer d.bus.Unsubscribe(subID)

	slog.InfoContext(ctx, "notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "notification dispatcher stopped")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			d.handle(ctx, event)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, event *eventbus.Event) {
	title := d.taskTitle(ctx, event.TaskID)
	url := fmt.Sprintf("/tasks/%s", event.TaskID)

	switch event.Type {
	case eventbus.TaskClaimed:
		d.sender.SendToUser(ctx, event.ClientID, &Payload{
			Title: "Task picked up",
			Body:  fmt.Sprintf("An assistant started working on %q", title),
			URL:   url,
			Tag:   event.TaskID,
		})
	case eventbus.TaskCompleted:
		d.sender.SendToUser(ctx, event.ClientID, &Payload{
			Title: "Task completed",
			Body:  fmt.Sprintf("%q is ready for your review", title),
			URL:   url,
			Tag:   event.TaskID,
		})
	case eventbus.TaskApproved:
		d.sender.SendToUser(ctx, event.AssistantID, &Payload{
			Title: "Task approved",
			Body:  fmt.Sprintf("The client approved %q", title),
			URL:   url,
			Tag:   event.TaskID,
		})
	case eventbus.TaskRevisionRequested:
		d.sender.SendToUser(ctx, event.AssistantID, &Payload{
			Title: "Revision requested",
			Body:  fmt.Sprintf("The client wants changes on %q", title),
			URL:   url,
			Tag:   event.TaskID,
		})
	case eventbus.TaskReassigned:
		if event.AssistantID != "" {
			d.sender.SendToUser(ctx, event.AssistantID, &Payload{
				Title: "Task assigned to you",
				Body:  fmt.Sprintf("A manager assigned %q to you", title),
				URL:   url,
				Tag:   event.TaskID,
			})
		}
	case eventbus.TaskRejected:
		d.sender.SendToUser(ctx, event.ClientID, &Payload{
			Title: "Task returned",
			Body:  fmt.Sprintf("%q went back to the marketplace", title),
			URL:   url,
			Tag:   event.TaskID,
		})
	}
}

func (d *Dispatcher) taskTitle(ctx context.Context, taskID string) string {
	if taskID == "" {
		return "your task"
	}
	t, err := d.taskRepo.Get(ctx, taskID)
	if err != nil {
		return "your task"
	}
	return t.Title
}
