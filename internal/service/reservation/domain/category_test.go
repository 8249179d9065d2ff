package domain

import (
	"testing"
	"time"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestValidatorFor(t *testing.T) {
	tests := []struct {
		name       string
		kind       CategoryKind
		fields     Fields
		wantFields []string
	}{
		{
			name:   "scheduled ok",
			kind:   KindScheduled,
			fields: Fields{Quantity: 1, StartDate: date("2026-05-01"), EndDate: date("2026-05-03")},
		},
		{
			name:   "scheduled same day",
			kind:   KindScheduled,
			fields: Fields{Quantity: 2, StartDate: date("2026-05-01"), EndDate: date("2026-05-01")},
		},
		{
			name:       "scheduled start after end",
			kind:       KindScheduled,
			fields:     Fields{Quantity: 1, StartDate: date("2026-05-04"), EndDate: date("2026-05-03")},
			wantFields: []string{"startDate"},
		},
		{
			name:       "scheduled missing everything",
			kind:       KindScheduled,
			fields:     Fields{},
			wantFields: []string{"quantity", "startDate", "endDate"},
		},
		{
			name:   "attendance needs only quantity",
			kind:   KindAttendance,
			fields: Fields{Quantity: 3},
		},
		{
			name:       "attendance zero quantity",
			kind:       KindAttendance,
			fields:     Fields{StartDate: date("2026-05-04")},
			wantFields: []string{"quantity"},
		},
		{
			name:   "unrestricted accepts empty",
			kind:   KindUnrestricted,
			fields: Fields{},
		},
		{
			name:   "unknown kind falls back to unrestricted",
			kind:   CategoryKind("BOARD"),
			fields: Fields{},
		},
		{
			name:   "kind is case insensitive",
			kind:   CategoryKind("attendance"),
			fields: Fields{Quantity: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidatorFor(tt.kind).Validate(tt.fields)
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("expected %d errors, got %v", len(tt.wantFields), errs)
			}
			for i, f := range tt.wantFields {
				if errs[i].Field != f {
					t.Errorf("error %d: expected field %s, got %s", i, f, errs[i].Field)
				}
			}
		})
	}
}

func TestValidateRequired(t *testing.T) {
	errs := ValidateRequired("", Fields{Purpose: "  "})
	if len(errs) != 3 {
		t.Fatalf("expected itemId, purpose and contact errors, got %v", errs)
	}
	if errs := ValidateRequired("item-1", Fields{Purpose: "meeting", Email: "a@b.c"}); len(errs) != 0 {
		t.Errorf("email alone is a valid contact, got %v", errs)
	}
}
