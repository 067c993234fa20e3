package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/sourcegraph/conc/pool"

	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/pushsubscription"
)

type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Sender delivers Web Push notifications to a user's registered
// endpoints. Endpoints the push service reports as gone are pruned.
type Sender struct {
	vapidEnv *config.VAPIDEnv
	repo     pushsubscription.Repository
}

func NewSender(vapidEnv *config.VAPIDEnv, repo pushsubscription.Repository) *Sender {
	return &Sender{vapidEnv: vapidEnv, repo: repo}
}

// SendToUser pushes the payload to every endpoint the user registered.
// Delivery is best effort; failures are logged, never propagated.
func (s *Sender) SendToUser(ctx context.Context, userID string, payload *Payload) {
	if s.vapidEnv.VAPIDPrivateKey == "" || s.vapidEnv.VAPIDPublicKey == "" {
		slog.WarnContext(ctx, "push: VAPID keys not configured, skipping")
		return
	}

	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "push: failed to list subscriptions", "user_id", userID, "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "push: failed to marshal payload", "error", err)
		return
	}

	p := pool.New().WithMaxGoroutines(4)
	for _, sub := range subs {
		p.Go(func() {
			s.sendToSubscription(ctx, sub, data)
		})
	}
	p.Wait()
}

func (s *Sender) sendToSubscription(ctx context.Context, sub *pushsubscription.Subscription, data []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}

	resp, err := webpush.SendNotification(data, wpSub, &webpush.Options{
		VAPIDPublicKey:  s.vapidEnv.VAPIDPublicKey,
		VAPIDPrivateKey: s.vapidEnv.VAPIDPrivateKey,
		Subscriber:      s.vapidEnv.VAPIDContact,
		TTL:             86400,
	})
	if err != nil {
		slog.ErrorContext(ctx, "push: failed to send", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		slog.InfoContext(ctx, "push: subscription expired, removing", "endpoint", sub.Endpoint)
		if err := s.repo.Delete(ctx, sub.ID); err != nil {
			slog.ErrorContext(ctx, "push: failed to delete expired subscription", "id", sub.ID, "error", err)
		}
		return
	}
	if resp.StatusCode >= 400 {
		slog.WarnContext(ctx, "push: unexpected status", "endpoint", sub.Endpoint, "status", resp.StatusCode)
	}
}
