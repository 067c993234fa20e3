package client

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive         SubscriptionStatus = "active"
	SubscriptionCancelled      SubscriptionStatus = "cancelled"
	SubscriptionExpired        SubscriptionStatus = "expired"
	SubscriptionPendingPayment SubscriptionStatus = "pending_payment"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionActive, SubscriptionCancelled, SubscriptionExpired, SubscriptionPendingPayment:
		return true
	}
	return false
}

// Subscription is the entitlement state the payment provider maintains
// through the subscription hook. Plan names encode the entitlement
// (personal_5h, business_8h, full_2h, ...).
type Subscription struct {
	Plan      string             `yaml:"plan" json:"plan"`
	Status    SubscriptionStatus `yaml:"status" json:"status"`
	StartedAt time.Time          `yaml:"started_at" json:"started_at"`
	ExpiresAt *time.Time         `yaml:"expires_at,omitempty" json:"expires_at,omitempty"`
	AutoRenew bool               `yaml:"auto_renew" json:"auto_renew"`
}

type Client struct {
	ID           string        `yaml:"id" json:"id"`
	Name         string        `yaml:"name" json:"name"`
	Contact      string        `yaml:"contact" json:"contact"`
	Subscription *Subscription `yaml:"subscription,omitempty" json:"subscription,omitempty"`
	CreatedAt    time.Time     `yaml:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `yaml:"updated_at" json:"updated_at"`
}
