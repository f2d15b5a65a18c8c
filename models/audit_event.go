package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditActor identifies who performed an audited action
const (
	AuditActorPolicyEngine = "policy_engine"
	AuditActorSystem       = "system"
	AuditActorReviewer     = "reviewer"
)

// Audit action names
const (
	AuditActionPolicyDecision = "policy_decision"
	AuditActionCaseApproved   = "approve"
	AuditActionCaseRejected   = "reject"
	AuditActionInfoRequested  = "request_info"
	AuditActionCaseExpired    = "case_expired"
	AuditActionActionExecuted = "action_executed"
	AuditActionUserRegistered = "user_registered"
)

// AuditEvent represents one entry in the audit trail
type AuditEvent struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Timestamp time.Time  `json:"ts" db:"ts"`
	Actor     string     `json:"actor" db:"actor"`
	Action    string     `json:"action" db:"action"`
	CaseID    *uuid.UUID `json:"case_id,omitempty" db:"case_id"`
	Detail    *string    `json:"detail,omitempty" db:"detail"`
}

// TableName returns the table name for the AuditEvent model
func (AuditEvent) TableName() string {
	return "audit_events"
}

// NewAuditEvent creates an audit event with generated ID and current timestamp
func NewAuditEvent(actor, action string) *AuditEvent {
	return &AuditEvent{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Actor:     actor,
		Action:    action,
	}
}

// WithCase attaches the related case ID
func (e *AuditEvent) WithCase(caseID uuid.UUID) *AuditEvent {
	e.CaseID = &caseID
	return e
}

// WithDetail attaches a human-readable detail string
func (e *AuditEvent) WithDetail(detail string) *AuditEvent {
	e.Detail = &detail
	return e
}
