package rule

import (
	"context"
	"testing"

	"govportal/internal/service/reservation/domain/port"
)

func TestCELDispatchPolicy(t *testing.T) {
	tests := []struct {
		name string
		expr string
		in   port.DispatchInput
		want bool
	}{
		{"admin goes direct", `role == "ROLE_ADMIN"`, port.DispatchInput{Role: "ROLE_ADMIN"}, true},
		{"citizen uses events", `role == "ROLE_ADMIN"`, port.DispatchInput{Role: "ROLE_USER"}, false},
		{
			"category and quantity",
			`role == "ROLE_ADMIN" || (category == "ATTENDANCE" && quantity <= 2)`,
			port.DispatchInput{Role: "ROLE_USER", Category: "ATTENDANCE", Quantity: 2},
			true,
		},
		{
			"quantity over limit",
			`category == "ATTENDANCE" && quantity <= 2`,
			port.DispatchInput{Category: "ATTENDANCE", Quantity: 3},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewCELDispatchPolicy(tt.expr)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			got, err := p.UseDirectPath(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCELDispatchPolicy_RejectsBadRules(t *testing.T) {
	for _, expr := range []string{`role ==`, `unknown == "x"`} {
		if _, err := NewCELDispatchPolicy(expr); err == nil {
			t.Errorf("expected %q to be rejected", expr)
		}
	}
}

func TestCELDispatchPolicy_NonBoolResult(t *testing.T) {
	p, err := NewCELDispatchPolicy(`role`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.UseDirectPath(context.Background(), port.DispatchInput{Role: "x"}); err == nil {
		t.Error("expected an error for a non-bool rule")
	}
}
