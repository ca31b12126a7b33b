package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"

	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

// DefaultSubscription is the fallback installment target for members
// created without an explicit subscription amount.
var DefaultSubscription = decimal.NewFromInt(300000)

// KnownModes are the payment modes offered by default; free-text modes are
// also accepted on entries.
var KnownModes = []string{"Cash", "Bank", "Bkash", "Nagad"}

type (
	// Direction tags an entry as money coming in or going out. The
	// historical data encoded this as "cash-in"/"cash-out" inside a
	// free-text type field; the two concerns are split here and the
	// legacy spellings are normalized on input.
	Direction string

	// MovementType tags a stock log row.
	MovementType string

	Date struct {
		time.Time
	}

	// Entry is a single dated monetary movement in the cash book.
	Entry struct {
		ID        string
		Date      Date
		Time      string // optional clock time, "15:04"
		Amount    decimal.Decimal
		Category  string
		Direction Direction
		Mode      string
		Division  string
		Details   string
		Remarks   string
		Contact   string
		BillNo    string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// InstallmentSlot is one indexed payment toward a member's
	// subscription target.
	InstallmentSlot struct {
		PaidOn  Date
		Amount  decimal.Decimal
		Details string
	}

	// Member owns a sparse map of installment slots keyed by slot index
	// (>= 1). Indices need not be contiguous; the set of columns shown
	// for the whole book is the union across all members.
	Member struct {
		ID           string
		Name         string
		Phone        string
		Email        string
		Subscription decimal.Decimal
		Installments map[int]InstallmentSlot
	}

	// StockMovement is one in/out movement of a product. Balance is the
	// running stock level after the movement and is recomputed by storage
	// whenever a product's log is mutated.
	StockMovement struct {
		Type     MovementType
		Quantity int64
		Date     Date
		Remarks  string
		Balance  int64
	}

	Product struct {
		ID        string
		Name      string
		Unit      string
		Remarks   string
		CreatedAt time.Time
		Logs      []StockMovement
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidMovement  = errors.New("invalid movement type")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidSlotIndex = errors.New("invalid installment index")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidDate      = errors.New("invalid date")
	ErrRemarksTooLong   = errors.New("remarks too long (max 500 characters)")
)

// ParseDirection normalizes a direction string, accepting the legacy
// "cash-in"/"cash-out" spellings from older exports.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in", "cash-in":
		return DirectionIn, nil
	case "out", "cash-out":
		return DirectionOut, nil
	default:
		return "", ErrInvalidDirection
	}
}

// ParseMovementType normalizes a stock movement type.
func ParseMovementType(s string) (MovementType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in":
		return MovementIn, nil
	case "out":
		return MovementOut, nil
	default:
		return "", ErrInvalidMovement
	}
}

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the date in YYYY-MM-DD form, empty for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (e Entry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.Direction != DirectionIn && e.Direction != DirectionOut {
		return ErrInvalidDirection
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Remarks) > 500 {
		return ErrRemarksTooLong
	}
	return nil
}

// EffectiveSubscription is the member's target amount, falling back to
// DefaultSubscription when none was recorded.
func (m Member) EffectiveSubscription() decimal.Decimal {
	if m.Subscription.IsZero() {
		return DefaultSubscription
	}
	return m.Subscription
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if m.Subscription.IsNegative() {
		return ErrInvalidAmount
	}
	for idx, slot := range m.Installments {
		if idx < 1 {
			return ErrInvalidSlotIndex
		}
		if slot.Amount.IsNegative() {
			return ErrInvalidAmount
		}
	}
	return nil
}

func (sm StockMovement) Validate() error {
	if sm.Type != MovementIn && sm.Type != MovementOut {
		return ErrInvalidMovement
	}
	if sm.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if err := sm.Date.Validate(); err != nil {
		return err
	}
	return nil
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
