// Package verification decides whether the documents on file for a
// worker describe the same person.
package verification

import (
	"fmt"
	"strings"

	"idverify/internal/match"
	"idverify/internal/models"
)

// Orchestrator runs the identity matcher over every educational record
// and aggregates the pair verdicts. It is a pure function of its
// inputs: calling Verify twice with the same records yields the same
// result, and any "has verification already run" state belongs to the
// storage layer, not here.
type Orchestrator struct {
	matcher *match.Matcher
}

// New returns an Orchestrator using the given matcher; a nil matcher
// gets the default threshold.
func New(m *match.Matcher) *Orchestrator {
	if m == nil {
		m = match.New()
	}
	return &Orchestrator{matcher: m}
}

// Verify compares the personal record against every educational record
// and aggregates. Comparison never short-circuits: a failure on the
// first educational document does not skip the rest, so every mismatch
// is visible to the caller in one pass. Verdict order follows the input
// order of educational records.
//
// With no personal record or no educational records the status is
// pending with an explicit reason; that is "not enough input yet", not
// a failure.
func (o *Orchestrator) Verify(personal *models.IdentityRecord, educational []models.IdentityRecord) models.VerificationResult {
	if personal == nil {
		return models.VerificationResult{
			Status:  models.StatusPending,
			Message: "waiting on personal document upload; nothing to compare yet",
		}
	}
	if len(educational) == 0 {
		return models.VerificationResult{
			Status:  models.StatusPending,
			Message: "waiting on educational document upload; nothing to compare yet",
		}
	}

	res := models.VerificationResult{Verdicts: make([]models.MatchVerdict, 0, len(educational))}
	var anyFailed, anyIndeterminate bool
	for _, edu := range educational {
		v := o.matcher.Compare(*personal, edu)
		res.Verdicts = append(res.Verdicts, v)
		switch v.Overall {
		case models.OutcomeFailed:
			anyFailed = true
		case models.OutcomeIndeterminate:
			anyIndeterminate = true
		}
		for _, d := range v.Details {
			if d.Status == models.FieldMismatched {
				res.Mismatches = append(res.Mismatches, d)
			}
		}
	}

	switch {
	case anyFailed:
		res.Status = models.StatusFailed
		res.Message = failureMessage(res.Mismatches)
	case anyIndeterminate:
		res.Status = models.StatusPending
		res.Message = indeterminateMessage(res.Verdicts)
	default:
		res.Status = models.StatusVerified
		res.Message = "identity verified: name and date of birth match across all documents"
	}
	return res
}

func failureMessage(mismatches []models.FieldComparison) string {
	parts := make([]string, 0, len(mismatches))
	for _, m := range mismatches {
		parts = append(parts, fmt.Sprintf("%s does not match (personal: %q, educational: %q)", m.Field, m.PersonalValue, m.OtherValue))
	}
	return "verification failed: " + strings.Join(parts, "; ")
}

// indeterminateMessage names the fields that blocked resolution so the
// caller can tell "we couldn't check X" apart from "X doesn't match".
func indeterminateMessage(verdicts []models.MatchVerdict) string {
	seen := map[string]bool{}
	var blocked []string
	for _, v := range verdicts {
		if v.Overall != models.OutcomeIndeterminate {
			continue
		}
		for _, d := range v.Details {
			if d.Status == models.FieldMissing && !seen[d.Field] {
				seen[d.Field] = true
				blocked = append(blocked, d.Field)
			}
		}
	}
	return fmt.Sprintf("verification pending: educational document present but %s could not be compared (missing on one side)", strings.Join(blocked, ", "))
}
