package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDirection(t *testing.T) {
	cases := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"in", DirectionIn, true},
		{"out", DirectionOut, true},
		{"cash-in", DirectionIn, true},
		{"cash-out", DirectionOut, true},
		{" OUT ", DirectionOut, true},
		{"refund", "", false},
		{"", "", false},
	}
	for i, tc := range cases {
		got, err := ParseDirection(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d: expected %s, got %s (err=%v)", i, tc.want, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestEntryValidate(t *testing.T) {
	good := Entry{
		Date:      NewDate(2025, 1, 1),
		Amount:    decimal.NewFromInt(100),
		Category:  "Cement",
		Direction: DirectionOut,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Entry{
		{Date: Date{Time: time.Time{}}, Amount: decimal.NewFromInt(1), Category: "c", Direction: DirectionIn},
		{Date: NewDate(2025, 1, 1), Amount: decimal.NewFromInt(-1), Category: "c", Direction: DirectionIn},
		{Date: NewDate(2025, 1, 1), Amount: decimal.NewFromInt(1), Category: "", Direction: DirectionIn},
		{Date: NewDate(2025, 1, 1), Amount: decimal.NewFromInt(1), Category: "c", Direction: "cash"},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}

	long := good
	long.Remarks = strings.Repeat("x", 501)
	if err := long.Validate(); !errors.Is(err, ErrRemarksTooLong) {
		t.Fatalf("expected ErrRemarksTooLong, got %v", err)
	}
}

func TestMemberValidate(t *testing.T) {
	m := Member{
		Name:         "Rahim",
		Subscription: decimal.NewFromInt(300000),
		Installments: map[int]InstallmentSlot{
			1: {PaidOn: NewDate(2025, 2, 1), Amount: decimal.NewFromInt(50000)},
		},
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	m.Installments[0] = InstallmentSlot{Amount: decimal.NewFromInt(1)}
	if err := m.Validate(); err == nil {
		t.Fatalf("expected error for index 0")
	}
	delete(m.Installments, 0)

	m.Name = " "
	if err := m.Validate(); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestEffectiveSubscription(t *testing.T) {
	m := Member{Name: "x"}
	if !m.EffectiveSubscription().Equal(DefaultSubscription) {
		t.Fatalf("expected default subscription, got %s", m.EffectiveSubscription())
	}
	m.Subscription = decimal.NewFromInt(120000)
	if !m.EffectiveSubscription().Equal(decimal.NewFromInt(120000)) {
		t.Fatalf("expected explicit subscription, got %s", m.EffectiveSubscription())
	}
}

func TestStockMovementValidate(t *testing.T) {
	good := StockMovement{Type: MovementIn, Quantity: 50, Date: NewDate(2025, 3, 1)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []StockMovement{
		{Type: "sideways", Quantity: 1, Date: NewDate(2025, 3, 1)},
		{Type: MovementOut, Quantity: 0, Date: NewDate(2025, 3, 1)},
		{Type: MovementOut, Quantity: -3, Date: NewDate(2025, 3, 1)},
		{Type: MovementIn, Quantity: 1},
	}
	for i, sm := range bads {
		if err := sm.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateString(t *testing.T) {
	if s := NewDate(2025, 7, 9).String(); s != "2025-07-09" {
		t.Fatalf("got %q", s)
	}
	if s := (Date{}).String(); s != "" {
		t.Fatalf("expected empty for zero date, got %q", s)
	}
}
