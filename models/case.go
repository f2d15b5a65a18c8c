package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CaseStatus represents the review state of a queued case
type CaseStatus string

const (
	CaseStatusPendingReview CaseStatus = "PENDING_REVIEW"
	CaseStatusApproved      CaseStatus = "APPROVED"
	CaseStatusRejected      CaseStatus = "REJECTED"
	CaseStatusNeedsMoreInfo CaseStatus = "NEEDS_MORE_INFO"
	CaseStatusExpired       CaseStatus = "EXPIRED"
)

// ReviewerDecision represents a human reviewer's verdict on a case
type ReviewerDecision string

const (
	ReviewerDecisionApprove     ReviewerDecision = "APPROVE"
	ReviewerDecisionReject      ReviewerDecision = "REJECT"
	ReviewerDecisionRequestInfo ReviewerDecision = "REQUEST_INFO"
)

// HistoryEvent is a single entry in a case's review trail
type HistoryEvent struct {
	Timestamp time.Time `json:"ts"`
	Actor     string    `json:"actor"`
	Event     string    `json:"event"`
	Note      string    `json:"note,omitempty"`
}

// ReviewCase represents a proposed action held in the approval queue.
// Cases are created by the policy engine whenever a decision is not ALLOW.
type ReviewCase struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	UserDisplay      string          `json:"user_display" db:"user_display"`
	UserMessage      string          `json:"user_message" db:"user_message"`
	ToolName         string          `json:"tool_name" db:"tool_name"`
	ToolArgsRedacted json.RawMessage `json:"tool_args_redacted" db:"tool_args_redacted"` // JSONB
	RiskLabel        string          `json:"risk_label" db:"risk_label"`
	RiskScore        int             `json:"risk_score" db:"risk_score"`
	RiskRationale    string          `json:"risk_rationale" db:"risk_rationale"`
	PolicyRefs       []string        `json:"policy_refs" db:"policy_refs"`
	Status           CaseStatus      `json:"status" db:"status"`
	History          []HistoryEvent  `json:"history" db:"history"` // JSONB
	ReviewerNote     *string         `json:"reviewer_note,omitempty" db:"reviewer_note"`
	ReviewedBy       *string         `json:"reviewed_by,omitempty" db:"reviewed_by"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the ReviewCase model
func (ReviewCase) TableName() string {
	return "approval_queue"
}

// NewReviewCase creates a pending case with an initial history entry
func NewReviewCase(userDisplay, userMessage, toolName string, toolArgs json.RawMessage) *ReviewCase {
	now := time.Now()
	return &ReviewCase{
		ID:               uuid.New(),
		UserDisplay:      userDisplay,
		UserMessage:      userMessage,
		ToolName:         toolName,
		ToolArgsRedacted: toolArgs,
		Status:           CaseStatusPendingReview,
		History: []HistoryEvent{
			{Timestamp: now, Actor: "policy_engine", Event: "created"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendHistory adds an event to the case's review trail
func (c *ReviewCase) AppendHistory(actor, event, note string) {
	c.History = append(c.History, HistoryEvent{
		Timestamp: time.Now(),
		Actor:     actor,
		Event:     event,
		Note:      note,
	})
}

// StatusForDecision maps a reviewer decision to the resulting case status
func StatusForDecision(d ReviewerDecision) (CaseStatus, bool) {
	switch d {
	case ReviewerDecisionApprove:
		return CaseStatusApproved, true
	case ReviewerDecisionReject:
		return CaseStatusRejected, true
	case ReviewerDecisionRequestInfo:
		return CaseStatusNeedsMoreInfo, true
	default:
		return "", false
	}
}
