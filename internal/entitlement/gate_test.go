package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/internal/client"
	"github.com/taskhive/taskhive/internal/task"
	"github.com/taskhive/taskhive/pkg/cerr"
)

func activeClient(plan string) *client.Client {
	return &client.Client{
		ID:   "client1",
		Name: "Client One",
		Subscription: &client.Subscription{
			Plan:      plan,
			Status:    client.SubscriptionActive,
			StartedAt: time.Now().Add(-24 * time.Hour),
		},
	}
}

func TestGateCanCreate(t *testing.T) {
	gate := NewGate(NewCatalog())

	tests := []struct {
		name     string
		plan     string
		taskType task.Type
		allowed  bool
	}{
		{"personal plan allows personal", "personal_5h", task.TypePersonal, true},
		{"personal plan denies business", "personal_5h", task.TypeBusiness, false},
		{"business plan allows business", "business_8h", task.TypeBusiness, true},
		{"business plan denies personal", "business_8h", task.TypePersonal, false},
		{"full plan allows personal", "full_2h", task.TypePersonal, true},
		{"full plan allows business", "full_2h", task.TypeBusiness, true},
		{"combo plan allows both", "combo_4h", task.TypeBusiness, true},
		{"unknown plan denies everything", "trial", task.TypePersonal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.CanCreate(activeClient(tt.plan), tt.taskType)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, cerr.IsCode(err, cerr.PermissionDenied))
			assert.True(t, cerr.IsReason(err, ReasonNotEntitled))
		})
	}
}

func TestGateNoSubscription(t *testing.T) {
	gate := NewGate(NewCatalog())

	c := &client.Client{ID: "client1", Name: "Client One"}
	err := gate.CanCreate(c, task.TypePersonal)
	require.Error(t, err)
	assert.True(t, cerr.IsReason(err, ReasonNotEntitled))
}

func TestGateInactiveSubscription(t *testing.T) {
	gate := NewGate(NewCatalog())

	for _, status := range []client.SubscriptionStatus{
		client.SubscriptionCancelled,
		client.SubscriptionExpired,
		client.SubscriptionPendingPayment,
	} {
		c := activeClient("full_8h")
		c.Subscription.Status = status
		err := gate.CanCreate(c, task.TypePersonal)
		require.Error(t, err, "status %s", status)
		assert.True(t, cerr.IsReason(err, ReasonNotEntitled))
	}
}

func TestGateExpiredButActiveSubscription(t *testing.T) {
	gate := NewGate(NewCatalog())
	gate.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	c := activeClient("full_8h")
	expired := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	c.Subscription.ExpiresAt = &expired

	err := gate.CanCreate(c, task.TypePersonal)
	require.Error(t, err)
	assert.True(t, cerr.IsReason(err, ReasonNotEntitled))

	future := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	c.Subscription.ExpiresAt = &future
	assert.NoError(t, gate.CanCreate(c, task.TypePersonal))
}

func TestCatalogOverridesPrefixRules(t *testing.T) {
	c := NewCatalog()
	c.plans["trial"] = Plan{
		Name:         "trial",
		DailyHours:   1,
		AllowedTypes: []string{string(task.TypePersonal)},
	}
	gate := NewGate(c)

	assert.NoError(t, gate.CanCreate(activeClient("trial"), task.TypePersonal))
	assert.Error(t, gate.CanCreate(activeClient("trial"), task.TypeBusiness))
}

func TestParseDailyHours(t *testing.T) {
	assert.Equal(t, 5, parseDailyHours("personal_5h"))
	assert.Equal(t, 8, parseDailyHours("business_8h"))
	assert.Equal(t, 0, parseDailyHours("trial"))
	assert.Equal(t, 0, parseDailyHours("personal_unlimited"))
}
