package types

import (
	"errors"
	"testing"
)

func TestNewEnvelopeShapeComplete(t *testing.T) {
	e := NewEnvelope("test")
	if !ValidateShape(e) {
		t.Fatal("fresh envelope must have every sequence field initialized")
	}
	if e.Source != "test" {
		t.Errorf("source = %q", e.Source)
	}
	if e.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestErrorEnvelopeShapeComplete(t *testing.T) {
	e := ErrorEnvelope("mod", errors.New("boom"))
	if !ValidateShape(e) {
		t.Fatal("error envelope must still have every sequence field initialized")
	}
	if e.Result.Error != "boom" {
		t.Errorf("error = %q", e.Result.Error)
	}
	if e.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", e.Confidence)
	}
	if e.Details["error"] != "boom" {
		t.Errorf("details = %v", e.Details)
	}
}

func TestValidateShapeCatchesNilSequence(t *testing.T) {
	e := NewEnvelope("test")
	e.Result.Links = nil
	if ValidateShape(e) {
		t.Fatal("nil links slice must fail shape validation")
	}
}
