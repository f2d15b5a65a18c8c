package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DecisionSource records how an executed action was authorized
type DecisionSource string

const (
	DecisionSourceAllow    DecisionSource = "ALLOW"    // auto-approved by policy
	DecisionSourceApproved DecisionSource = "APPROVED" // approved by a human reviewer
)

// ActionExecution records a call to the (stubbed) target benefit system
type ActionExecution struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	CaseID         *uuid.UUID      `json:"case_id,omitempty" db:"case_id"`
	RequestedBy    *string         `json:"requested_by,omitempty" db:"requested_by"`
	Approver       *string         `json:"approver,omitempty" db:"approver"`
	ToolName       string          `json:"tool_name" db:"tool_name"`
	ToolArgs       json.RawMessage `json:"tool_args" db:"tool_args"` // JSONB
	DecisionSource DecisionSource  `json:"decision_source" db:"decision_source"`
	Status         string          `json:"status" db:"status"`
	Response       json.RawMessage `json:"response" db:"response"` // JSONB
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the ActionExecution model
func (ActionExecution) TableName() string {
	return "action_executions"
}
