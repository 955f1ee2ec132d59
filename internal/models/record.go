package models

// DocumentRole classifies an uploaded document.
type DocumentRole string

const (
	RolePersonal    DocumentRole = "personal"
	RoleEducational DocumentRole = "educational"
)

// Valid reports whether the role is one of the known document classes.
func (r DocumentRole) Valid() bool {
	return r == RolePersonal || r == RoleEducational
}

// IdentityRecord holds the normalized fields extracted from one
// document's OCR text for subsequent identity verification.
//
// Name and DateOfBirth are either a non-empty normalized value or empty
// meaning absent; null-like literals ("null", "n/a", ...) never survive
// construction. DateOfBirth is canonical DD-MM-YYYY. A record is built
// once per document and never mutated; re-processing a document
// produces a fresh record that supersedes the old one.
type IdentityRecord struct {
	SourceDocumentID   string            `json:"source_document_id"`
	Role               DocumentRole      `json:"role"`
	Name               string            `json:"name,omitempty"`
	DateOfBirth        string            `json:"dob,omitempty"`
	DocumentFields     map[string]string `json:"document_fields,omitempty"`
	ExtractionComplete bool              `json:"extraction_complete"`
	RawText            string            `json:"-"`
}

// HasName reports whether a name was extracted.
func (r IdentityRecord) HasName() bool { return r.Name != "" }

// HasDOB reports whether a date of birth was extracted.
func (r IdentityRecord) HasDOB() bool { return r.DateOfBirth != "" }
