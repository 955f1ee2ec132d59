package models

// Outcome is the per-pair comparison verdict.
type Outcome string

const (
	// OutcomeVerified: name and date of birth both compared equal.
	OutcomeVerified Outcome = "verified"
	// OutcomeFailed: at least one field was present on both sides and
	// compared unequal.
	OutcomeFailed Outcome = "failed"
	// OutcomeIndeterminate: a field needed for comparison is absent on
	// one side and no field that was present mismatched. Distinct from
	// failed: the comparison could not be performed, the values did
	// not disagree.
	OutcomeIndeterminate Outcome = "indeterminate"
)

// FieldStatus describes how a single field compared.
type FieldStatus string

const (
	FieldMatched    FieldStatus = "matched"
	FieldMismatched FieldStatus = "mismatched"
	FieldMissing    FieldStatus = "missing"
)

// FieldComparison records the outcome for one compared field, with both
// values so user-facing messages can show exactly what disagreed.
type FieldComparison struct {
	Field         string      `json:"field"`
	PersonalValue string      `json:"personal_value,omitempty"`
	OtherValue    string      `json:"other_value,omitempty"`
	Status        FieldStatus `json:"status"`
}

// MatchVerdict is the result of comparing a personal record against one
// other record. Details always lists every field considered, whether it
// matched, mismatched or was missing.
type MatchVerdict struct {
	SourceDocumentID string            `json:"source_document_id"`
	NameMatch        bool              `json:"name_match"`
	NameSimilarity   float64           `json:"name_similarity"`
	DOBMatch         bool              `json:"dob_match"`
	Overall          Outcome           `json:"overall"`
	Details          []FieldComparison `json:"details"`
}

// VerificationStatus is the aggregate status over all document pairs.
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusVerified VerificationStatus = "verified"
	StatusFailed   VerificationStatus = "failed"
)

// VerificationResult aggregates one personal record against N
// educational records. Status is verified iff every pair verified,
// failed iff at least one pair failed, otherwise pending. Pending
// always carries a reason in Message ("waiting on a document" vs
// "document present but missing a comparable field").
type VerificationResult struct {
	Status     VerificationStatus `json:"status"`
	Verdicts   []MatchVerdict     `json:"per_document_verdicts"`
	Mismatches []FieldComparison  `json:"mismatches"`
	Message    string             `json:"message"`
}
