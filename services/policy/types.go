package policy

// RiskLabel is the coarse triage category driving routing
type RiskLabel string

const (
	LabelRoutine  RiskLabel = "ROUTINE"
	LabelEscalate RiskLabel = "ESCALATE"
	LabelBlock    RiskLabel = "BLOCK"
)

// Decision is the routing outcome derived from the risk label
type Decision string

const (
	DecisionAllow      Decision = "ALLOW"
	DecisionNeedsHuman Decision = "NEEDS_HUMAN"
	DecisionBlock      Decision = "BLOCK"
)

// RecommendedAction is the suggested next step for the reviewer or automation
type RecommendedAction string

const (
	ActionAutoApprove     RecommendedAction = "auto_approve"
	ActionRequestInfo     RecommendedAction = "request_info"
	ActionEscalateToHuman RecommendedAction = "escalate_to_human"
	ActionFreezePayment   RecommendedAction = "freeze_payment"
	ActionReferFraud      RecommendedAction = "refer_fraud"
)

// SignalLevel grades the strength of a harm/rights signal
type SignalLevel string

const (
	SignalNone     SignalLevel = "none"
	SignalWeak     SignalLevel = "weak"
	SignalModerate SignalLevel = "moderate"
	SignalStrong   SignalLevel = "strong"
)

// SignalType classifies the kind of hardship or rights concern detected
type SignalType string

const (
	SignalHousingRisk          SignalType = "housing_risk"
	SignalFoodInsecurity       SignalType = "food_insecurity"
	SignalMedicalAccess        SignalType = "medical_access"
	SignalSafetyRisk           SignalType = "safety_risk"
	SignalRightsProcessConcern SignalType = "rights_process_concern"
	SignalOther                SignalType = "other"
)

// DecisionContext describes the benefit decision being proposed
type DecisionContext struct {
	DecisionType         string `json:"decision_type"` // approve|deny|reduce|suspend|continue_review
	PaymentDueWithinDays *int   `json:"payment_due_within_days,omitempty"`
	CaseAgeDays          *int   `json:"case_age_days,omitempty"`
	Channel              string `json:"channel,omitempty"` // web|phone|in_person|chat
}

// DocsStatus tracks requested versus received documents and their quality
type DocsStatus struct {
	DocsRequested []string `json:"docs_requested,omitempty"`
	DocsReceived  []string `json:"docs_received,omitempty"`
	DocsQuality   string   `json:"docs_quality,omitempty"`
}

// EngagementBarriers captures obstacles to the claimant engaging with the process
type EngagementBarriers struct {
	LanguageBarrier               string `json:"language_barrier,omitempty"`
	DigitalAccess                 string `json:"digital_access,omitempty"`
	DisabilityAccommodationNeeded string `json:"disability_accommodation_needed,omitempty"`
}

// FraudSignals carries upstream fraud-detection verdicts
type FraudSignals struct {
	IdentityDuplicateMatch string `json:"identity_duplicate_match,omitempty"`
	DeviceOrAddressReuse   string `json:"device_or_address_reuse,omitempty"`
	DocumentTampering      string `json:"document_tampering,omitempty"`
}

// StructuredInputs is the bag of declared/verified evidence fields.
// Several fields have a legacy alias (e.g. last_employer_report for
// employer_report_status); the primary field wins when both are set.
type StructuredInputs struct {
	IDVStatus       string `json:"idv_status,omitempty"`
	ResidencyStatus string `json:"residency_status,omitempty"`
	AddressStability string `json:"address_stability,omitempty"`

	EmploymentStatusDeclared string `json:"employment_status_declared,omitempty"`
	SeparationReasonDeclared string `json:"separation_reason_declared,omitempty"`
	ReasonForUnemployment    string `json:"reason_for_unemployment,omitempty"`

	EmployerReportStatus string `json:"employer_report_status,omitempty"`
	LastEmployerReport   string `json:"last_employer_report,omitempty"`

	ContributionsRecordStatus string `json:"contributions_record_status,omitempty"`
	ContributionsRecord       string `json:"contributions_record,omitempty"`

	EarningsRecordLast30d string `json:"earnings_record_last_30d,omitempty"`
	RecentEarningsRecord  string `json:"recent_earnings_record,omitempty"`

	DeclaredIncome     string `json:"declared_income,omitempty"`
	IncomeVerification string `json:"income_verification,omitempty"`

	OtherBenefitsOverlapCheck string `json:"other_benefits_overlap_check,omitempty"`
	BankDataAccess            string `json:"bank_data_access,omitempty"`

	DocsStatus         *DocsStatus         `json:"docs_status,omitempty"`
	EngagementBarriers *EngagementBarriers `json:"engagement_barriers,omitempty"`
	FraudSignals       *FraudSignals       `json:"fraud_signals,omitempty"`

	ClaimHistory string `json:"claim_history,omitempty"`
}

// FreeText carries unstructured text scanned for harm-signal keywords only
type FreeText struct {
	ClaimantMessage             string `json:"claimant_message,omitempty"`
	AgentChatTranscriptExcerpt  string `json:"agent_chat_transcript_excerpt,omitempty"`
	CaseworkerNote              string `json:"caseworker_note,omitempty"`
}

// PolicyInput is the evaluation request. The engine assumes a pre-validated
// input (schema validation is the HTTP handler's responsibility) and applies
// only normalization defaults.
type PolicyInput struct {
	CaseID       string `json:"case_id,omitempty"`
	TimestampUTC string `json:"timestamp_utc,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	BenefitType  string `json:"benefit_type,omitempty"`

	DecisionContext  DecisionContext  `json:"decision_context"`
	StructuredInputs StructuredInputs `json:"structured_inputs"`
	FreeText         *FreeText        `json:"free_text,omitempty"`

	HarmSignalPresent       string `json:"harm_signal_present,omitempty"` // none|weak|moderate|strong
	HarmSignalSource        string `json:"harm_signal_source,omitempty"`
	AbilityToEngage         string `json:"ability_to_engage,omitempty"`
	AppealOrReviewRequested string `json:"appeal_or_review_requested,omitempty"` // yes|no
}

// HarmRightsSignals is the engine's harm/rights assessment
type HarmRightsSignals struct {
	SignalLevel  SignalLevel  `json:"signal_level"`
	SignalType   []SignalType `json:"signal_type"`
	SignalSource string       `json:"signal_source"` // claimant|caseworker|third_party|system
	Notes        string       `json:"notes"`
}

// Labels bundles the label with its recommended action and rationale
type Labels struct {
	Label             RiskLabel         `json:"label"`
	RecommendedAction RecommendedAction `json:"recommended_action"`
	PolicyRationale   string            `json:"policy_rationale"`
}

// PolicyDecision is the evaluation response.
// Invariant: Decision is always DecisionForLabel(RiskLabel).
type PolicyDecision struct {
	Decision          Decision          `json:"decision"`
	RiskLabel         RiskLabel         `json:"risk_label"`
	RiskScore         int               `json:"risk_score"`
	RiskRationale     string            `json:"risk_rationale"`
	PolicyRefs        []string          `json:"policy_refs"`
	HarmRightsSignals HarmRightsSignals `json:"harm_rights_signals"`
	Labels            Labels            `json:"labels"`
}

// DecisionForLabel maps a risk label to its routing decision
func DecisionForLabel(label RiskLabel) Decision {
	switch label {
	case LabelEscalate:
		return DecisionNeedsHuman
	case LabelBlock:
		return DecisionBlock
	default:
		return DecisionAllow
	}
}
