package models

import "time"

// Worker is the subject being onboarded. One worker accumulates one
// personal document and zero or more educational documents.
//
// MobileNumber is a pointer so absent mobiles persist as NULL; the
// unique index must not collide workers that never provided one.
type Worker struct {
	WorkerID     string    `json:"worker_id" gorm:"primaryKey"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	MobileNumber *string   `json:"mobile_number,omitempty" gorm:"uniqueIndex"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
}

// WorkerDocument is one processed upload: the raw OCR text retained for
// audit plus the extracted identity fields. Re-processing inserts a new
// row; rows are never updated in place.
type WorkerDocument struct {
	ID                 string       `json:"id" gorm:"primaryKey"`
	WorkerID           string       `json:"worker_id" gorm:"index"`
	Role               DocumentRole `json:"role" gorm:"index"`
	ExtractedName      string       `json:"extracted_name"`
	ExtractedDOB       string       `json:"extracted_dob"`
	FieldsJSON         string       `json:"fields_json"`
	RawOCRText         string       `json:"raw_ocr_text"`
	ExtractionComplete bool         `json:"extraction_complete"`
	Generation         int64        `json:"generation"`
	CreatedAt          time.Time    `json:"created_at"`
}

// WorkerVerification is the persisted aggregate verification state for
// a worker. ResultJSON holds the full VerificationResult for the API to
// render; Status is duplicated as a column for cheap filtering.
type WorkerVerification struct {
	WorkerID   string             `json:"worker_id" gorm:"primaryKey"`
	Status     VerificationStatus `json:"status"`
	ResultJSON string             `json:"result_json"`
	UpdatedAt  time.Time          `json:"updated_at"`
}
