// Package match compares two extracted identity records and produces a
// per-pair verdict.
package match

import (
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"idverify/internal/models"
	"idverify/internal/normalize"
)

// DefaultNameThreshold is the similarity bound above which two
// normalized names count as the same person. Configurable policy, not a
// constant of the domain.
const DefaultNameThreshold = 0.85

// Matcher compares identity records field by field.
type Matcher struct {
	nameThreshold float64
}

// New returns a Matcher with the default name similarity threshold.
func New() *Matcher {
	return &Matcher{nameThreshold: DefaultNameThreshold}
}

// NewWithThreshold returns a Matcher with a caller-chosen threshold.
// Values outside (0,1] fall back to the default.
func NewWithThreshold(t float64) *Matcher {
	if t <= 0 || t > 1 {
		t = DefaultNameThreshold
	}
	return &Matcher{nameThreshold: t}
}

// Compare matches a personal record against one other record.
//
// Names are compared token-order-insensitively with Jaro-Winkler on the
// normalized forms. Dates of birth are compared by exact equality of
// the canonical DD-MM-YYYY form; OCR digit-confusion correction is
// deliberately not attempted here.
//
// Overall is verified iff both fields match; failed iff any field
// present on both sides compared unequal (a definite mismatch fails the
// pair even when the other field could not be compared); indeterminate
// iff a needed field is absent on either side and nothing that was
// present disagreed.
func (m *Matcher) Compare(personal, other models.IdentityRecord) models.MatchVerdict {
	v := models.MatchVerdict{SourceDocumentID: other.SourceDocumentID}

	nameMissing := !personal.HasName() || !other.HasName()
	if nameMissing {
		v.Details = append(v.Details, models.FieldComparison{
			Field:         "name",
			PersonalValue: personal.Name,
			OtherValue:    other.Name,
			Status:        models.FieldMissing,
		})
	} else {
		v.NameSimilarity = NameSimilarity(personal.Name, other.Name)
		v.NameMatch = v.NameSimilarity >= m.nameThreshold
		status := models.FieldMatched
		if !v.NameMatch {
			status = models.FieldMismatched
		}
		v.Details = append(v.Details, models.FieldComparison{
			Field:         "name",
			PersonalValue: personal.Name,
			OtherValue:    other.Name,
			Status:        status,
		})
	}

	dobMissing := !personal.HasDOB() || !other.HasDOB()
	if dobMissing {
		v.Details = append(v.Details, models.FieldComparison{
			Field:         "dob",
			PersonalValue: personal.DateOfBirth,
			OtherValue:    other.DateOfBirth,
			Status:        models.FieldMissing,
		})
	} else {
		v.DOBMatch = personal.DateOfBirth == other.DateOfBirth
		status := models.FieldMatched
		if !v.DOBMatch {
			status = models.FieldMismatched
		}
		v.Details = append(v.Details, models.FieldComparison{
			Field:         "dob",
			PersonalValue: personal.DateOfBirth,
			OtherValue:    other.DateOfBirth,
			Status:        status,
		})
	}

	definiteMismatch := (!nameMissing && !v.NameMatch) || (!dobMissing && !v.DOBMatch)
	switch {
	case definiteMismatch:
		v.Overall = models.OutcomeFailed
	case nameMissing || dobMissing:
		v.Overall = models.OutcomeIndeterminate
	default:
		v.Overall = models.OutcomeVerified
	}
	return v
}

// NameSimilarity scores two names in [0,1], insensitive to token order:
// "KHAN BABU" and "BABU KHAN" score 1.
func NameSimilarity(a, b string) float64 {
	return strutil.Similarity(sortedTokens(a), sortedTokens(b), metrics.NewJaroWinkler())
}

func sortedTokens(s string) string {
	toks := strings.Fields(normalize.Name(s))
	sort.Strings(toks)
	return strings.Join(toks, " ")
}
