package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Action statuses.
const (
	ActionSuccess = "success"
	ActionError   = "error"
)

// Action is one mutating dispatch recorded in the journal. Scope is the
// idempotency scope ("like", "comment-hide", ...) and EntityID the post id,
// comment id or normalized agent name it targeted.
type Action struct {
	ID             string    `json:"id" yaml:"id"`
	CreatedAt      time.Time `json:"createdAt" yaml:"created_at"`
	Scope          string    `json:"scope" yaml:"scope"`
	EntityID       string    `json:"entityId" yaml:"entity_id"`
	IdempotencyKey string    `json:"idempotencyKey" yaml:"idempotency_key"`
	Status         string    `json:"status" yaml:"status"`
	HTTPStatus     int       `json:"httpStatus" yaml:"http_status"`
	RequestID      string    `json:"requestId,omitempty" yaml:"request_id,omitempty"`
	Code           string    `json:"code,omitempty" yaml:"code,omitempty"`
	Error          string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// ActionFilter narrows ListActions. Zero values match everything.
type ActionFilter struct {
	Scope    string
	EntityID string
	Limit    int
}
