package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

// evaluateHeuristic runs the classifier portion of the pipeline only
func evaluateHeuristic(in *PolicyInput) (RiskLabel, RecommendedAction, evidence) {
	ev := deriveEvidence(in)
	label := classify(&ev)
	return label, recommendedAction(label, &ev), ev
}

func TestClassify_DenialWithConfirmedIneligibilityBlocks(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "deny"},
		StructuredInputs: StructuredInputs{
			ContributionsRecordStatus: "insufficient",
			ResidencyStatus:           "not_verified",
		},
	}

	label, action, _ := evaluateHeuristic(in)

	assert.Equal(t, LabelBlock, label)
	assert.Equal(t, ActionFreezePayment, action)
	assert.Equal(t, DecisionBlock, DecisionForLabel(label))
}

func TestClassify_PossibleOverlapEscalates(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "approve"},
		StructuredInputs: StructuredInputs{
			IDVStatus:                 "verified",
			OtherBenefitsOverlapCheck: "possible overlap",
		},
	}

	label, action, _ := evaluateHeuristic(in)

	assert.Equal(t, LabelEscalate, label)
	assert.Equal(t, ActionEscalateToHuman, action)
	assert.Equal(t, DecisionNeedsHuman, DecisionForLabel(label))
}

func TestClassify_DenialWithPendingIdentityEscalates(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "deny"},
		StructuredInputs: StructuredInputs{
			IDVStatus: "pending",
		},
	}

	label, action, _ := evaluateHeuristic(in)

	assert.Equal(t, LabelEscalate, label)
	assert.Equal(t, ActionEscalateToHuman, action)
}

func TestClassify_CleanApprovalIsRoutine(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "approve"},
		StructuredInputs: StructuredInputs{
			IDVStatus:                 "verified",
			ResidencyStatus:           "verified",
			ContributionsRecordStatus: "sufficient",
		},
	}

	label, action, _ := evaluateHeuristic(in)

	assert.Equal(t, LabelRoutine, label)
	assert.Equal(t, ActionAutoApprove, action)
	assert.Equal(t, DecisionAllow, DecisionForLabel(label))
}

func TestClassify_ConfirmedDocumentTamperingBlocksWithFraudReferral(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "approve"},
		StructuredInputs: StructuredInputs{
			FraudSignals: &FraudSignals{DocumentTampering: "confirmed"},
		},
	}

	label, action, ev := evaluateHeuristic(in)

	assert.Equal(t, LabelBlock, label)
	assert.Equal(t, ActionReferFraud, action)
	assert.True(t, ev.fraudConfirmed())
}

func TestClassify_HarmSignalSuppressesBlock(t *testing.T) {
	// Same confirmed-fraud evidence as the blocking case, but with a harm
	// signal present: the block must be downgraded to an escalation.
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "approve"},
		StructuredInputs: StructuredInputs{
			FraudSignals: &FraudSignals{DocumentTampering: "confirmed"},
		},
		HarmSignalPresent: "moderate",
	}

	label, action, _ := evaluateHeuristic(in)

	assert.Equal(t, LabelEscalate, label)
	assert.Equal(t, ActionEscalateToHuman, action)
}

func TestClassify_EngagementBarrierSuppressesIneligibilityBlock(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "deny"},
		StructuredInputs: StructuredInputs{
			ContributionsRecordStatus: "insufficient",
			ResidencyStatus:           "not_verified",
			EngagementBarriers:        &EngagementBarriers{LanguageBarrier: "significant"},
		},
	}

	label, _, ev := evaluateHeuristic(in)

	assert.True(t, ev.barrierPresent())
	assert.Equal(t, LabelEscalate, label)
}

func TestClassify_PendingContributionsNearDeadlineEscalates(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{
			DecisionType:         "approve",
			PaymentDueWithinDays: intPtr(3),
		},
		StructuredInputs: StructuredInputs{
			ContributionsRecordStatus: "pending",
		},
	}

	label, _, _ := evaluateHeuristic(in)
	assert.Equal(t, LabelEscalate, label)
}

func TestClassify_PendingContributionsWithoutDeadlineIsNotEscalated(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "approve"},
		StructuredInputs: StructuredInputs{
			ContributionsRecordStatus: "pending",
		},
	}

	label, action, _ := evaluateHeuristic(in)

	// No deadline pressure: the case stays routine but still needs evidence.
	assert.Equal(t, LabelRoutine, label)
	assert.Equal(t, ActionRequestInfo, action)
}

func TestClassify_OldCaseCountsAsDeadline(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{
			DecisionType: "approve",
			CaseAgeDays:  intPtr(30),
		},
		StructuredInputs: StructuredInputs{
			ContributionsRecordStatus: "pending",
		},
	}

	label, _, _ := evaluateHeuristic(in)
	assert.Equal(t, LabelEscalate, label)
}

func TestClassify_DisputedEmployerReportEscalates(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "approve"},
		StructuredInputs: StructuredInputs{
			LastEmployerReport: "disputed",
		},
	}

	label, _, _ := evaluateHeuristic(in)
	assert.Equal(t, LabelEscalate, label)
}

func TestClassify_AppealRequestEscalates(t *testing.T) {
	in := &PolicyInput{
		DecisionContext:         DecisionContext{DecisionType: "approve"},
		AppealOrReviewRequested: "yes",
	}

	label, _, ev := evaluateHeuristic(in)

	assert.Equal(t, LabelEscalate, label)
	assert.True(t, ev.appealRequested)
}

func TestClassify_FraudPrecedesNegativeDecisionDoubt(t *testing.T) {
	// Both the fraud rule and the negative-decision rule could apply; the
	// fraud rule is earlier in the cascade so the case blocks.
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "deny"},
		StructuredInputs: StructuredInputs{
			IDVStatus:    "partial",
			FraudSignals: &FraudSignals{IdentityDuplicateMatch: "confirmed"},
		},
	}

	label, action, _ := evaluateHeuristic(in)

	assert.Equal(t, LabelBlock, label)
	assert.Equal(t, ActionReferFraud, action)
}

func TestClassify_ContinueReviewRequestsInfo(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "continue_review"},
	}

	label, action, _ := evaluateHeuristic(in)

	assert.Equal(t, LabelRoutine, label)
	assert.Equal(t, ActionRequestInfo, action)
}

func TestClassify_MissingDocsRequestInfoOnRoutine(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "approve"},
		StructuredInputs: StructuredInputs{
			IDVStatus: "verified",
			DocsStatus: &DocsStatus{
				DocsRequested: []string{"payslip", "id_card"},
				DocsReceived:  []string{"payslip"},
			},
		},
	}

	label, action, _ := evaluateHeuristic(in)

	assert.Equal(t, LabelRoutine, label)
	assert.Equal(t, ActionRequestInfo, action)
}

func TestSignalLevel_ExplicitGradeWins(t *testing.T) {
	in := &PolicyInput{
		DecisionContext:   DecisionContext{DecisionType: "approve"},
		HarmSignalPresent: "strong",
		StructuredInputs: StructuredInputs{
			EngagementBarriers: &EngagementBarriers{DigitalAccess: "limited"},
		},
	}

	ev := deriveEvidence(in)
	assert.Equal(t, SignalStrong, signalLevel(&ev))
}

func TestSignalLevel_BarrierImpliesWeakSignal(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "approve"},
		StructuredInputs: StructuredInputs{
			EngagementBarriers: &EngagementBarriers{DisabilityAccommodationNeeded: "yes"},
		},
	}

	ev := deriveEvidence(in)
	assert.Equal(t, SignalWeak, signalLevel(&ev))
}

func TestSignalTypes_KeywordDetection(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "approve"},
		FreeText: &FreeText{
			ClaimantMessage: "I cannot pay my rent and have no money for food",
		},
		HarmSignalPresent: "moderate",
	}

	ev := deriveEvidence(in)
	types := signalTypes(&ev, signalLevel(&ev))

	assert.Equal(t, []SignalType{SignalHousingRisk, SignalFoodInsecurity}, types)
}

func TestSignalTypes_AppealAddsRightsProcessConcern(t *testing.T) {
	in := &PolicyInput{
		DecisionContext:         DecisionContext{DecisionType: "approve"},
		AppealOrReviewRequested: "yes",
	}

	ev := deriveEvidence(in)
	types := signalTypes(&ev, signalLevel(&ev))

	assert.Contains(t, types, SignalRightsProcessConcern)
}

func TestSignalTypes_OtherWhenSignalButNoKeywords(t *testing.T) {
	in := &PolicyInput{
		DecisionContext:   DecisionContext{DecisionType: "approve"},
		HarmSignalPresent: "weak",
	}

	ev := deriveEvidence(in)
	types := signalTypes(&ev, signalLevel(&ev))

	assert.Equal(t, []SignalType{SignalOther}, types)
}

func TestDeriveEvidence_LegacyAliasesAndNormalization(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "approve"},
		StructuredInputs: StructuredInputs{
			ResidencyStatus:           "Not Verified",
			ContributionsRecord:       "Insufficient",
			BankDataAccess:            "unavailable (technical)",
			OtherBenefitsOverlapCheck: "Possible Overlap",
			DocsStatus:                &DocsStatus{DocsQuality: "not_verified"},
		},
	}

	ev := deriveEvidence(in)

	assert.Equal(t, "not_verified", ev.residencyStatus)
	assert.Equal(t, "insufficient", ev.contributionsStatus)
	assert.Equal(t, "unavailable", ev.bankAccess)
	assert.Equal(t, "possible", ev.overlapCheck)
	assert.Equal(t, "missing", ev.docsQuality)
}

func TestDeriveEvidence_PrimaryFieldWinsOverAlias(t *testing.T) {
	in := &PolicyInput{
		DecisionContext: DecisionContext{DecisionType: "approve"},
		StructuredInputs: StructuredInputs{
			EmployerReportStatus: "consistent",
			LastEmployerReport:   "disputed",
		},
	}

	ev := deriveEvidence(in)
	assert.Equal(t, "consistent", ev.employerReport)
}
