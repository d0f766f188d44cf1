package record

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewFallback_NotInResponse(t *testing.T) {
	rec := NewFallback("molecule_chembl_id", "CHEMBL25", ReasonNotInResponse, Cause{})

	if !rec.IsFallback() {
		t.Fatal("Record should be a fallback")
	}
	if rec.Fallback.Reason != ReasonNotInResponse {
		t.Errorf("Reason = %q, want not_in_response", rec.Fallback.Reason)
	}
	if rec.ID != "CHEMBL25" {
		t.Errorf("ID = %q, want CHEMBL25", rec.ID)
	}
	if rec.Fields["molecule_chembl_id"] != "CHEMBL25" {
		t.Error("Fallback should carry the identifier field")
	}
	// No cause: no error detail, no status, no retry-after.
	if rec.Fallback.ErrorType != "" || rec.Fallback.HTTPStatus != nil || rec.Fallback.RetryAfterSec != nil {
		t.Error("not_in_response fallback should carry no cause details")
	}
	if rec.Fallback.Timestamp.IsZero() {
		t.Error("Fallback timestamp should be set")
	}
}

func TestNewFallback_Exception(t *testing.T) {
	cause := Cause{
		Err:        errors.New("connection refused"),
		HTTPStatus: 503,
		Attempt:    3,
	}
	rec := NewFallback("activity_id", "31863", ReasonException, cause)

	fb := rec.Fallback
	if fb.Reason != ReasonException {
		t.Errorf("Reason = %q, want exception", fb.Reason)
	}
	if fb.ErrorMessage != "connection refused" {
		t.Errorf("ErrorMessage = %q, want connection refused", fb.ErrorMessage)
	}
	if fb.ErrorType == "" {
		t.Error("ErrorType should be derived from the cause")
	}
	if fb.HTTPStatus == nil || *fb.HTTPStatus != 503 {
		t.Errorf("HTTPStatus = %v, want 503", fb.HTTPStatus)
	}
	if fb.Attempt == nil || *fb.Attempt != 3 {
		t.Errorf("Attempt = %v, want 3", fb.Attempt)
	}
}

func TestNewFallback_BreakerOpen(t *testing.T) {
	rec := NewFallback("assay_chembl_id", "CHEMBL615156", ReasonBreakerOpen, Cause{
		Err:        errors.New("circuit breaker open"),
		RetryAfter: 12 * time.Second,
	})

	fb := rec.Fallback
	if fb.Reason != ReasonBreakerOpen {
		t.Errorf("Reason = %q, want circuit_breaker_open", fb.Reason)
	}
	if fb.RetryAfterSec == nil || *fb.RetryAfterSec != 12 {
		t.Errorf("RetryAfterSec = %v, want 12", fb.RetryAfterSec)
	}
	// Breaker-open implies no HTTP status: the request never went out.
	if fb.HTTPStatus != nil {
		t.Errorf("HTTPStatus = %v, want nil for breaker-open", fb.HTTPStatus)
	}
}

func TestFallbackFlatRoundTrip(t *testing.T) {
	orig := NewFallback("molecule_chembl_id", "CHEMBL404", ReasonException, Cause{
		Err:        errors.New("boom"),
		HTTPStatus: 500,
	})

	data, err := json.Marshal(orig.Flat())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	restored, err := FromFlat(flat, "molecule_chembl_id")
	if err != nil {
		t.Fatalf("FromFlat failed: %v", err)
	}
	if !restored.IsFallback() {
		t.Fatal("Restored record should be a fallback")
	}

	fb := restored.Fallback
	if fb.Reason != ReasonException {
		t.Errorf("Reason = %q, want exception", fb.Reason)
	}
	if fb.ErrorMessage != "boom" {
		t.Errorf("ErrorMessage = %q, want boom", fb.ErrorMessage)
	}
	if fb.HTTPStatus == nil || *fb.HTTPStatus != 500 {
		t.Errorf("HTTPStatus = %v, want 500", fb.HTTPStatus)
	}
	if !fb.Timestamp.Equal(orig.Fallback.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", fb.Timestamp, orig.Fallback.Timestamp)
	}
}

func TestFromFlat_InvalidReasonType(t *testing.T) {
	flat := map[string]any{
		"molecule_chembl_id": "CHEMBL1",
		"fallback_reason":    42,
	}
	if _, err := FromFlat(flat, "molecule_chembl_id"); err == nil {
		t.Error("FromFlat should reject a non-string fallback_reason")
	}
}
