// Package extract turns raw OCR text into a structured identity record
// via a language-model call with schema validation, bounded retry and
// graceful degradation.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"idverify/internal/models"
	"idverify/internal/normalize"
)

// Failure classes for the model call. Both degrade the same way after
// retries are exhausted, but logs distinguish them.
var (
	// ErrTransport: the call failed to complete (timeout, network,
	// rate limit).
	ErrTransport = errors.New("llm transport failure")
	// ErrSchema: the model responded but the output could not be
	// parsed into the expected field structure.
	ErrSchema = errors.New("llm schema failure")
)

const (
	defaultAttempts = 3
	defaultTimeout  = 30 * time.Second
)

// Extractor runs structured extraction against a language model. It
// never writes to storage; persisting the record is the caller's job.
type Extractor struct {
	llm      Completer
	log      *zap.Logger
	attempts uint
	timeout  time.Duration
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithAttempts bounds the number of model-call attempts per document.
func WithAttempts(n uint) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.attempts = n
		}
	}
}

// WithTimeout bounds each individual model call.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// New builds an Extractor with 3 attempts and a 30s per-call timeout.
func New(llm Completer, log *zap.Logger, opts ...Option) *Extractor {
	e := &Extractor{llm: llm, log: log, attempts: defaultAttempts, timeout: defaultTimeout}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract sends the full raw text (never truncated) to the model with
// the role-specific instruction set and builds an IdentityRecord from
// the response.
//
// Transport and schema failures are retried with the same prompt up to
// the attempt bound; a successful call that simply reports absent
// fields is a valid terminal result and is not retried. If retries are
// exhausted the returned record has every field absent and
// ExtractionComplete=false; Extract never fails the pipeline.
func (e *Extractor) Extract(ctx context.Context, rawText string, role models.DocumentRole, sourceDocumentID string) models.IdentityRecord {
	rec := models.IdentityRecord{
		SourceDocumentID: sourceDocumentID,
		Role:             role,
		RawText:          rawText,
	}
	if strings.TrimSpace(rawText) == "" {
		e.log.Warn("extract: empty OCR text, nothing to extract",
			zap.String("document_id", sourceDocumentID), zap.String("role", string(role)))
		return rec
	}

	prompt := buildPrompt(role, rawText)

	var fields map[string]any
	err := retry.Do(
		func() error {
			cctx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()

			out, err := e.llm.Complete(cctx, prompt)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrTransport, err)
			}
			parsed, err := parseResponse(out)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrSchema, err)
			}
			if err := validateResponse(role, parsed); err != nil {
				return fmt.Errorf("%w: %v", ErrSchema, err)
			}
			fields = parsed
			return nil
		},
		retry.Attempts(e.attempts),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			e.log.Warn("extract: model call failed, retrying",
				zap.String("document_id", sourceDocumentID),
				zap.Uint("attempt", n+1),
				zap.Bool("schema_failure", errors.Is(err, ErrSchema)),
				zap.Error(err))
		}),
	)
	if err != nil {
		e.log.Error("extract: degrading to incomplete record after exhausting retries",
			zap.String("document_id", sourceDocumentID),
			zap.String("role", string(role)),
			zap.Error(err))
		return rec
	}

	populate(&rec, fields)

	e.log.Info("extract: record built",
		zap.String("document_id", sourceDocumentID),
		zap.String("role", string(role)),
		zap.Bool("has_name", rec.HasName()),
		zap.Bool("has_dob", rec.HasDOB()),
		zap.Bool("complete", rec.ExtractionComplete))
	return rec
}

// populate coerces every returned field through the null-like filter
// before it can reach the record: tokens like "null" or "n/a" become
// absence, never stored literals.
func populate(rec *models.IdentityRecord, fields map[string]any) {
	if v := stringField(fields, "name"); !normalize.IsNullLike(v) {
		rec.Name = strings.TrimSpace(v)
	}
	if v := stringField(fields, "dob"); !normalize.IsNullLike(v) {
		if canonical, ok := normalize.Date(v); ok {
			rec.DateOfBirth = canonical
		}
	}

	rec.DocumentFields = make(map[string]string)
	for key := range fields {
		if key == "name" || key == "dob" {
			continue
		}
		v := stringField(fields, key)
		if normalize.IsNullLike(v) {
			continue
		}
		if key == "qualification" {
			v = normalizeQualification(v)
		}
		rec.DocumentFields[key] = strings.TrimSpace(v)
	}
	if len(rec.DocumentFields) == 0 {
		rec.DocumentFields = nil
	}

	// Computed, never model-reported.
	rec.ExtractionComplete = rec.HasName() && rec.HasDOB()
}

// stringField fetches a field tolerating nulls and non-string scalars
// (a numeric year_of_passing becomes its decimal form).
func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	default:
		b, _ := json.Marshal(t)
		return strings.TrimSpace(string(b))
	}
}

// normalizeQualification maps board-specific class labels onto
// "Class 10" / "Class 12".
func normalizeQualification(q string) string {
	upper := strings.ToUpper(q)
	switch {
	case strings.Contains(upper, "XII") || strings.Contains(upper, "12"):
		return "Class 12"
	case strings.Contains(upper, "X") || strings.Contains(upper, "10"):
		return "Class 10"
	}
	return q
}

// parseResponse decodes the model output into a flat field map,
// tolerating Markdown code fences and surrounding prose.
func parseResponse(out string) (map[string]any, error) {
	jsonStr := stripCodeFences(out)
	if candidate, ok := extractFirstJSON(jsonStr); ok {
		jsonStr = candidate
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return fields, nil
}

// stripCodeFences removes surrounding Markdown code fences like ```json ... ```.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
		// remove a possible language tag at the start of the fence
		if i := strings.IndexByte(s, '\n'); i != -1 {
			first := strings.TrimSpace(s[:i])
			if len(first) > 0 && len(first) < 20 { // likely a language tag like json
				s = s[i+1:]
			}
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// extractFirstJSON attempts to extract the first balanced JSON object or array.
func extractFirstJSON(s string) (string, bool) {
	if obj, ok := extractBalanced(s, '{', '}'); ok {
		return obj, true
	}
	if arr, ok := extractBalanced(s, '[', ']'); ok {
		return arr, true
	}
	return "", false
}

func extractBalanced(s string, open, close rune) (string, bool) {
	start := -1
	depth := 0
	for i, r := range s {
		if r == open {
			if depth == 0 {
				start = i
			}
			depth++
		} else if r == close {
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
