package models

import (
	"database/sql"
	"errors"
	"testing"
)

func TestAccountRefPrefersUUID(t *testing.T) {
	ref := AccountRef{
		LegacyID: 42,
		UUID:     "f47ac10b-58cc-4372-a567-0e02b2c3d479",
	}

	v, err := ref.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != "f47ac10b-58cc-4372-a567-0e02b2c3d479" {
		t.Errorf("value = %v, want the uuid", v)
	}
}

func TestAccountRefFallsBackToLegacyID(t *testing.T) {
	ref := AccountRef{LegacyID: 42}

	v, err := ref.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(42) {
		t.Errorf("value = %v, want 42", v)
	}
}

func TestAccountRefRejectsMalformedUUID(t *testing.T) {
	ref := AccountRef{UUID: "not-a-uuid", LegacyID: 42}

	if _, err := ref.Value(); err == nil {
		t.Error("expected error for malformed uuid")
	}
}

func TestAccountRefEmpty(t *testing.T) {
	var ref AccountRef

	_, err := ref.Value()
	if !errors.Is(err, ErrNoAccountRef) {
		t.Errorf("got %v, want ErrNoAccountRef", err)
	}
}

func TestSocialAccountRef(t *testing.T) {
	a := &SocialAccount{
		AccountID:   sql.NullInt64{Int64: 7, Valid: true},
		AccountUUID: "f47ac10b-58cc-4372-a567-0e02b2c3d479",
	}

	ref := a.Ref()
	if ref.LegacyID != 7 || ref.UUID != a.AccountUUID {
		t.Errorf("ref = %+v", ref)
	}
}

func TestPostStatusTransitionsGuards(t *testing.T) {
	cases := []struct {
		status    string
		canCancel bool
		canRetry  bool
	}{
		{PostStatusPending, true, false},
		{PostStatusMediaUploaded, true, false},
		{PostStatusPublished, false, false},
		{PostStatusFailed, false, true},
		{PostStatusCancelled, false, false},
	}

	for _, tc := range cases {
		p := &ScheduledPost{Status: tc.status}
		if p.CanCancel() != tc.canCancel {
			t.Errorf("%s: CanCancel = %v, want %v", tc.status, p.CanCancel(), tc.canCancel)
		}
		if p.CanRetry() != tc.canRetry {
			t.Errorf("%s: CanRetry = %v, want %v", tc.status, p.CanRetry(), tc.canRetry)
		}
	}
}
