package policy

import "strings"

// evidence is the normalized view of a PolicyInput that the heuristic
// cascade operates on. All string fields hold canonical tokens.
type evidence struct {
	decisionType     string
	negativeDecision bool

	idvStatus           string
	residencyStatus     string
	employerReport      string
	separationReason    string
	contributionsStatus string
	earningsStatus      string
	incomeVerification  string
	overlapCheck        string
	bankAccess          string

	docsQuality   string
	docsRequested int
	docsReceived  int

	identityDuplicate string
	deviceReuse       string
	docTampering      string

	languageBarrier string
	digitalAccess   string
	disabilityNeeds string

	deadlineApproaching bool

	harmSignalPresent string // none|weak|moderate|strong
	harmSignalSource  string
	abilityToEngage   string
	appealRequested   bool

	notesText string // lowercased claimant message + caseworker note
}

func deriveEvidence(in *PolicyInput) evidence {
	structured := in.StructuredInputs

	ev := evidence{
		decisionType: in.DecisionContext.DecisionType,

		idvStatus:           normalize(structured.IDVStatus),
		residencyStatus:     normalizeResidency(structured.ResidencyStatus),
		employerReport:      normalize(firstNonEmpty(structured.EmployerReportStatus, structured.LastEmployerReport)),
		separationReason:    normalize(firstNonEmpty(structured.SeparationReasonDeclared, structured.ReasonForUnemployment)),
		contributionsStatus: normalize(firstNonEmpty(structured.ContributionsRecordStatus, structured.ContributionsRecord)),
		earningsStatus:      normalize(firstNonEmpty(structured.EarningsRecordLast30d, structured.RecentEarningsRecord)),
		incomeVerification:  normalize(structured.IncomeVerification),
		overlapCheck:        normalizeOverlap(structured.OtherBenefitsOverlapCheck),
		bankAccess:          normalizeBankAccess(structured.BankDataAccess),

		harmSignalPresent: firstNonEmpty(in.HarmSignalPresent, "none"),
		harmSignalSource:  normalizeSignalSource(in.HarmSignalSource),
		abilityToEngage:   normalizeAbility(in.AbilityToEngage),
		appealRequested:   normalize(in.AppealOrReviewRequested) == "yes",
	}

	switch ev.decisionType {
	case "deny", "reduce", "suspend":
		ev.negativeDecision = true
	}

	if docs := structured.DocsStatus; docs != nil {
		ev.docsQuality = normalizeDocsQuality(docs.DocsQuality)
		ev.docsRequested = len(docs.DocsRequested)
		ev.docsReceived = len(docs.DocsReceived)
	}

	if fraud := structured.FraudSignals; fraud != nil {
		ev.identityDuplicate = normalize(fraud.IdentityDuplicateMatch)
		ev.deviceReuse = normalize(fraud.DeviceOrAddressReuse)
		ev.docTampering = normalize(fraud.DocumentTampering)
	}

	if barriers := structured.EngagementBarriers; barriers != nil {
		ev.languageBarrier = normalize(barriers.LanguageBarrier)
		ev.digitalAccess = normalize(barriers.DigitalAccess)
		ev.disabilityNeeds = normalize(barriers.DisabilityAccommodationNeeded)
	}

	// A payment due within a week or a case older than three weeks counts as
	// a deadline. Absent payment-due means "not soon"; absent age means new.
	paymentDue := 999
	if in.DecisionContext.PaymentDueWithinDays != nil {
		paymentDue = *in.DecisionContext.PaymentDueWithinDays
	}
	caseAge := 0
	if in.DecisionContext.CaseAgeDays != nil {
		caseAge = *in.DecisionContext.CaseAgeDays
	}
	ev.deadlineApproaching = paymentDue <= 7 || caseAge >= 21

	if ft := in.FreeText; ft != nil {
		ev.notesText = strings.ToLower(ft.ClaimantMessage + " " + ft.CaseworkerNote)
	}

	return ev
}

// Derived predicates. These are computed from the canonical tokens and feed
// the cascade below; they mirror how caseworkers triage manually.

func (ev *evidence) barrierPresent() bool {
	return ev.abilityToEngage != "normal" ||
		ev.languageBarrier == "some" || ev.languageBarrier == "significant" ||
		ev.digitalAccess == "limited" || ev.digitalAccess == "none" ||
		ev.disabilityNeeds == "yes"
}

func (ev *evidence) harmSignal() bool {
	return ev.harmSignalPresent != "none" || ev.barrierPresent() || ev.appealRequested
}

func (ev *evidence) evidenceIncomplete() bool {
	return oneOf(ev.idvStatus, "partial", "pending", "failed") ||
		oneOf(ev.residencyStatus, "pending", "unknown") ||
		oneOf(ev.contributionsStatus, "pending", "unknown") ||
		oneOf(ev.employerReport, "pending", "disputed", "not_provided") ||
		oneOf(ev.incomeVerification, "partial", "missing", "unknown") ||
		oneOf(ev.bankAccess, "not_consented", "unavailable", "partial")
}

func (ev *evidence) docsMissing() bool {
	return ev.docsRequested > ev.docsReceived ||
		oneOf(ev.docsQuality, "expired", "unreadable", "inconsistent", "missing")
}

func (ev *evidence) contradictions() bool {
	return ev.employerReport == "disputed" || ev.separationReason == "unknown"
}

func (ev *evidence) overlapPossible() bool { return ev.overlapCheck == "possible" }

func (ev *evidence) overlapConfirmed() bool { return ev.overlapCheck == "confirmed" }

func (ev *evidence) fraudConfirmed() bool {
	return ev.identityDuplicate == "confirmed" ||
		ev.deviceReuse == "confirmed" ||
		ev.docTampering == "confirmed"
}

func (ev *evidence) confirmedIneligible() bool {
	return ev.contributionsStatus == "insufficient" &&
		(ev.residencyStatus == "not_verified" || ev.idvStatus == "failed")
}

// cascadeRule is one step of the fixed-precedence classifier
type cascadeRule struct {
	name    string
	applies func(ev *evidence) bool
	label   RiskLabel
}

// classifierCascade is the ordered rule list; the first matching rule wins.
// The order is a documented contract: blocking rules outrank escalation
// rules, and any harm signal or engagement barrier suppresses a block.
var classifierCascade = []cascadeRule{
	{
		name: "confirmed_fraud_or_overlap",
		applies: func(ev *evidence) bool {
			return (ev.fraudConfirmed() || ev.overlapConfirmed()) && !ev.harmSignal() && !ev.barrierPresent()
		},
		label: LabelBlock,
	},
	{
		name: "confirmed_ineligibility",
		applies: func(ev *evidence) bool {
			return ev.confirmedIneligible() && !ev.harmSignal() && !ev.barrierPresent()
		},
		label: LabelBlock,
	},
	{
		name: "negative_decision_with_doubt",
		applies: func(ev *evidence) bool {
			return ev.negativeDecision &&
				(ev.evidenceIncomplete() || ev.contradictions() || ev.harmSignal() || ev.barrierPresent())
		},
		label: LabelEscalate,
	},
	{
		name:    "possible_benefit_overlap",
		applies: func(ev *evidence) bool { return ev.overlapPossible() },
		label:   LabelEscalate,
	},
	{
		name: "pending_contributions_near_deadline",
		applies: func(ev *evidence) bool {
			return ev.contributionsStatus == "pending" && ev.deadlineApproaching
		},
		label: LabelEscalate,
	},
	{
		name:    "employer_report_disputed",
		applies: func(ev *evidence) bool { return ev.employerReport == "disputed" },
		label:   LabelEscalate,
	},
	{
		name:    "harm_signal_or_barrier",
		applies: func(ev *evidence) bool { return ev.harmSignal() || ev.barrierPresent() },
		label:   LabelEscalate,
	},
}

// classify runs the cascade; anything not caught is routine
func classify(ev *evidence) RiskLabel {
	for _, rule := range classifierCascade {
		if rule.applies(ev) {
			return rule.label
		}
	}
	return LabelRoutine
}

// signalLevel grades the harm/rights signal: an explicit grade wins, a
// barrier or appeal implies at least a weak signal
func signalLevel(ev *evidence) SignalLevel {
	if ev.harmSignalPresent != "none" {
		return SignalLevel(ev.harmSignalPresent)
	}
	if ev.barrierPresent() || ev.appealRequested {
		return SignalWeak
	}
	return SignalNone
}

// signalTypes scans the free text for hardship keywords. Detection order is
// the append order; an appeal always adds a rights-process concern.
func signalTypes(ev *evidence, level SignalLevel) []SignalType {
	types := []SignalType{}
	if containsAny(ev.notesText, "rent", "evict", "housing") {
		types = append(types, SignalHousingRisk)
	}
	if containsAny(ev.notesText, "food", "hungry") {
		types = append(types, SignalFoodInsecurity)
	}
	if containsAny(ev.notesText, "medical", "medicine") {
		types = append(types, SignalMedicalAccess)
	}
	if containsAny(ev.notesText, "unsafe", "violence") {
		types = append(types, SignalSafetyRisk)
	}
	if ev.appealRequested {
		types = append(types, SignalRightsProcessConcern)
	}
	if level != SignalNone && len(types) == 0 {
		types = append(types, SignalOther)
	}
	return types
}

// harmRightsSignals assembles the full harm/rights assessment
func harmRightsSignals(ev *evidence) HarmRightsSignals {
	level := signalLevel(ev)
	notes := "No harm/rights signals detected."
	if level != SignalNone {
		notes = "Harm/rights signal detected or inferred from engagement barriers or appeal request."
	}
	return HarmRightsSignals{
		SignalLevel:  level,
		SignalType:   signalTypes(ev, level),
		SignalSource: ev.harmSignalSource,
		Notes:        notes,
	}
}

// recommendedAction derives the next step from the label and evidence flags;
// it is independent of the numeric score
func recommendedAction(label RiskLabel, ev *evidence) RecommendedAction {
	switch label {
	case LabelBlock:
		if ev.fraudConfirmed() || ev.overlapConfirmed() {
			return ActionReferFraud
		}
		return ActionFreezePayment
	case LabelEscalate:
		return ActionEscalateToHuman
	default:
		if ev.docsMissing() || ev.decisionType == "continue_review" || ev.evidenceIncomplete() {
			return ActionRequestInfo
		}
		return ActionAutoApprove
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func oneOf(v string, candidates ...string) bool {
	for _, c := range candidates {
		if v == c {
			return true
		}
	}
	return false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
