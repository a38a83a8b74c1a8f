package core

import (
	"errors"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestParseRunID tests run ID parsing
func TestParseRunID(t *testing.T) {
	id := NewRunID()
	parsed, err := ParseRunID(" " + id.String() + " ")
	if err != nil {
		t.Fatalf("Expected valid run ID, got error: %v", err)
	}
	if parsed != id {
		t.Errorf("Expected %s, got %s", id, parsed)
	}

	if _, err := ParseRunID(""); err == nil {
		t.Error("Expected error for empty run ID")
	}
	if _, err := ParseRunID("not-a-uuid"); err == nil {
		t.Error("Expected error for malformed run ID")
	}
}

// TestSequenceHashIsOrderSensitive tests that push order changes the fingerprint
func TestSequenceHashIsOrderSensitive(t *testing.T) {
	a := ComputeSequenceHash([]float64{0.1, 0.2, 0.3})
	b := ComputeSequenceHash([]float64{0.1, 0.2, 0.3})
	c := ComputeSequenceHash([]float64{0.3, 0.2, 0.1})

	if !a.Equals(b) {
		t.Error("Expected identical sequences to hash identically")
	}
	if a.Equals(c) {
		t.Error("Expected reordered sequence to hash differently")
	}
	if ComputeSequenceHash(nil).IsEmpty() {
		t.Error("Expected empty sequence to still produce a hash")
	}
}

// TestPreconditionErrors tests error classification helpers
func TestPreconditionErrors(t *testing.T) {
	shape := NewShapeMismatchError("x", 10, 12)
	if !errors.Is(shape, ErrShapeMismatch) {
		t.Errorf("Expected shape mismatch sentinel, got %v", shape)
	}
	if !IsPreconditionError(shape) {
		t.Error("Expected shape mismatch to be a precondition error")
	}
	if !IsPreconditionError(NewMissingHistogramError("reference")) {
		t.Error("Expected missing histogram to be a precondition error")
	}
	if IsPreconditionError(NewFitError("no bins")) {
		t.Error("Expected fit error not to be a precondition error")
	}
	if !IsFitError(NewFitError("no bins")) {
		t.Error("Expected fit error to be classified as such")
	}
	if !IsNotFoundError(NewNotFoundError("run", "abc")) {
		t.Error("Expected not found classification")
	}
}
