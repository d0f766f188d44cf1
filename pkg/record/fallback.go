package record

import (
	"fmt"
	"time"
)

// Reason classifies why a fallback record was synthesized.
type Reason string

const (
	// ReasonNotInResponse marks an identifier that was requested but
	// absent from the returned items of an otherwise successful batch.
	ReasonNotInResponse Reason = "not_in_response"

	// ReasonException marks an identifier whose whole chunk failed with a
	// transport or decode error.
	ReasonException Reason = "exception"

	// ReasonBreakerOpen marks an identifier whose chunk was skipped
	// because the circuit breaker guarding the upstream was open.
	ReasonBreakerOpen Reason = "circuit_breaker_open"
)

const fallbackKeyPrefix = "fallback_"

// Flat-map keys for persisted fallback fields.
const (
	keyReason        = "fallback_reason"
	keyErrorType     = "fallback_error_type"
	keyErrorMessage  = "fallback_error_message"
	keyHTTPStatus    = "fallback_http_status"
	keyRetryAfterSec = "fallback_retry_after_sec"
	keyAttempt       = "fallback_attempt"
	keyTimestamp     = "fallback_timestamp"
)

// Fallback carries the structured failure reason of a placeholder record.
type Fallback struct {
	Reason        Reason
	ErrorType     string
	ErrorMessage  string
	HTTPStatus    *int
	RetryAfterSec *float64
	Attempt       *int
	Timestamp     time.Time
}

// Cause describes the failure that triggered fallback synthesis. The zero
// value is valid for not_in_response fallbacks, which have no cause beyond
// the identifier's absence.
type Cause struct {
	Err        error
	HTTPStatus int
	RetryAfter time.Duration
	Attempt    int
}

// NewFallback synthesizes a placeholder record for an identifier that could
// not be resolved. The result is a pure function of its inputs and the
// current wall-clock time.
func NewFallback(idField, id string, reason Reason, cause Cause) Record {
	fb := &Fallback{
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}

	if cause.Err != nil {
		fb.ErrorType = fmt.Sprintf("%T", cause.Err)
		fb.ErrorMessage = cause.Err.Error()
	}
	if cause.HTTPStatus > 0 {
		status := cause.HTTPStatus
		fb.HTTPStatus = &status
	}
	if cause.RetryAfter > 0 {
		sec := cause.RetryAfter.Seconds()
		fb.RetryAfterSec = &sec
	}
	if cause.Attempt > 0 {
		attempt := cause.Attempt
		fb.Attempt = &attempt
	}

	return Record{
		ID:       id,
		Fields:   map[string]any{idField: id},
		Fallback: fb,
	}
}

// flatten writes the fallback_* keys into a flat map.
func (f *Fallback) flatten(out map[string]any) {
	out[keyReason] = string(f.Reason)
	out[keyTimestamp] = f.Timestamp.Format(time.RFC3339Nano)
	if f.ErrorType != "" {
		out[keyErrorType] = f.ErrorType
	}
	if f.ErrorMessage != "" {
		out[keyErrorMessage] = f.ErrorMessage
	}
	if f.HTTPStatus != nil {
		out[keyHTTPStatus] = *f.HTTPStatus
	}
	if f.RetryAfterSec != nil {
		out[keyRetryAfterSec] = *f.RetryAfterSec
	}
	if f.Attempt != nil {
		out[keyAttempt] = *f.Attempt
	}
}

// fallbackFromFlat reconstructs the fallback struct from a flat map, or nil
// when the map has no fallback_reason.
func fallbackFromFlat(m map[string]any) (*Fallback, error) {
	raw, ok := m[keyReason]
	if !ok || raw == nil {
		return nil, nil
	}

	reasonStr, ok := raw.(string)
	if !ok || reasonStr == "" {
		return nil, fmt.Errorf("record: fallback_reason has invalid type %T", raw)
	}

	fb := &Fallback{Reason: Reason(reasonStr)}

	if v, ok := m[keyErrorType].(string); ok {
		fb.ErrorType = v
	}
	if v, ok := m[keyErrorMessage].(string); ok {
		fb.ErrorMessage = v
	}
	if v, ok := toFloat(m[keyHTTPStatus]); ok {
		status := int(v)
		fb.HTTPStatus = &status
	}
	if v, ok := toFloat(m[keyRetryAfterSec]); ok {
		sec := v
		fb.RetryAfterSec = &sec
	}
	if v, ok := toFloat(m[keyAttempt]); ok {
		attempt := int(v)
		fb.Attempt = &attempt
	}
	if v, ok := m[keyTimestamp].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			fb.Timestamp = ts
		}
	}

	return fb, nil
}

// toFloat coerces JSON-decoded numeric values to float64.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
