package assignment

import "time"

// Assignment is a standing client-to-assistant preference set by a manager.
// It pre-routes tasks the client creates later; it never moves an existing
// task by itself.
type Assignment struct {
	ClientID    string    `yaml:"client_id" json:"client_id"`
	AssistantID string    `yaml:"assistant_id" json:"assistant_id"`
	AssignedBy  string    `yaml:"assigned_by" json:"assigned_by"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
}
