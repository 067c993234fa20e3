package entitlement

import (
	"fmt"
	"time"

	"github.com/taskhive/taskhive/internal/client"
	"github.com/taskhive/taskhive/internal/task"
	"github.com/taskhive/taskhive/pkg/cerr"
)

const ReasonNotEntitled = "not_entitled"

// Gate decides whether a client's subscription covers creating a task of
// a given type.
type Gate struct {
	catalog *Catalog
	now     func() time.Time
}

func NewGate(catalog *Catalog) *Gate {
	return &Gate{catalog: catalog, now: time.Now}
}

// AllowedTypes returns the task types the client may create right now.
// A missing, inactive, or expired subscription allows nothing.
func (g *Gate) AllowedTypes(c *client.Client) []string {
	sub := c.Subscription
	if sub == nil || sub.Status != client.SubscriptionActive {
		return nil
	}
	if sub.ExpiresAt != nil && !sub.ExpiresAt.After(g.now()) {
		return nil
	}
	return g.catalog.Resolve(sub.Plan).AllowedTypes
}

// CanCreate returns a permission-denied error with reason not_entitled
// when the client's plan does not cover taskType.
func (g *Gate) CanCreate(c *client.Client, taskType task.Type) error {
	for _, t := range g.AllowedTypes(c) {
		if t == string(taskType) {
			return nil
		}
	}
	return cerr.NewReasonError(cerr.PermissionDenied, ReasonNotEntitled,
		fmt.Sprintf("subscription does not cover %s tasks", taskType), nil)
}
