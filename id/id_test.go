package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/handoff/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"JobID", id.NewJobID, "job_"},
		{"CandidateID", id.NewCandidateID, "cand_"},
		{"OfferID", id.NewOfferID, "offer_"},
		{"AssignmentID", id.NewAssignmentID, "asgn_"},
		{"EventID", id.NewEventID, "evt_"},
		{"WorkerID", id.NewWorkerID, "wkr_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixOffer)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixOffer {
		t.Errorf("expected prefix %q, got %q", id.PrefixOffer, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"JobID", id.NewJobID, id.ParseJobID},
		{"CandidateID", id.NewCandidateID, id.ParseCandidateID},
		{"OfferID", id.NewOfferID, id.ParseOfferID},
		{"AssignmentID", id.NewAssignmentID, id.ParseAssignmentID},
		{"EventID", id.NewEventID, id.ParseEventID},
		{"WorkerID", id.NewWorkerID, id.ParseWorkerID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseJobID rejects cand_", id.NewCandidateID().String(), id.ParseJobID},
		{"ParseCandidateID rejects offer_", id.NewOfferID().String(), id.ParseCandidateID},
		{"ParseOfferID rejects asgn_", id.NewAssignmentID().String(), id.ParseOfferID},
		{"ParseAssignmentID rejects evt_", id.NewEventID().String(), id.ParseAssignmentID},
		{"ParseEventID rejects wkr_", id.NewWorkerID().String(), id.ParseEventID},
		{"ParseWorkerID rejects job_", id.NewJobID().String(), id.ParseWorkerID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseEmptyString(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var nilID id.ID

	if !nilID.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if nilID.String() != "" {
		t.Errorf("nil ID String() should be empty, got %q", nilID.String())
	}
	if nilID.Prefix() != "" {
		t.Errorf("nil ID Prefix() should be empty, got %q", nilID.Prefix())
	}
}

func TestTextMarshalRoundTrip(t *testing.T) {
	original := id.NewOfferID()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var decoded id.ID
	if err := decoded.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if decoded.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", decoded.String(), original.String())
	}
}

func TestScanAndValue(t *testing.T) {
	original := id.NewJobID()

	v, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(v); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", scanned.String(), original.String())
	}

	var nilScanned id.ID
	if err := nilScanned.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !nilScanned.IsNil() {
		t.Error("Scan(nil) should produce the nil ID")
	}
}
