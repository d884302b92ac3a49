package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// DateLayout is the wire and storage format of a transaction date.
const DateLayout = "2006-01-02"

const maxDescriptionLen = 200

type (
	// Kind tells whether a transaction adds to or subtracts from the balance.
	Kind string

	// Date is a calendar day. The time component is always midnight UTC.
	Date struct {
		time.Time
	}

	// Transaction is a backend-confirmed record. ID, UserID and CreatedAt are
	// assigned by the repository and never by callers.
	Transaction struct {
		ID          string    `json:"id"`
		UserID      string    `json:"user_id"`
		Kind        Kind      `json:"type"`
		Amount      Money     `json:"amount"`
		Category    string    `json:"category"`
		Description string    `json:"description,omitempty"`
		Date        Date      `json:"date"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// Draft is a candidate transaction before the backend has stored it.
	Draft struct {
		Kind        Kind   `json:"type"`
		Amount      Money  `json:"amount"`
		Category    string `json:"category"`
		Description string `json:"description,omitempty"`
		Date        Date   `json:"date"`
	}

	// Patch carries only the fields a caller wants changed.
	Patch struct {
		Kind        *Kind   `json:"type,omitempty"`
		Amount      *Money  `json:"amount,omitempty"`
		Category    *string `json:"category,omitempty"`
		Description *string `json:"description,omitempty"`
		Date        *Date   `json:"date,omitempty"`
	}
)

var (
	ErrInvalidKind        = errors.New("invalid transaction type")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyCategory      = errors.New("empty category")
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", maxDescriptionLen)
	ErrEmptyPatch         = errors.New("no fields to update")
	ErrInvalidProfileName = errors.New("invalid profile name")
	ErrInvalidPicturePath = errors.New("invalid profile picture path")
)

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

func (k Kind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

func (k Kind) String() string { return string(k) }

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// YearMonth returns the date's month in YYYY-MM form.
func (d Date) YearMonth() string {
	return d.Format("2006-01")
}

// AddDays returns the date n calendar days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, data)
	}
	// Accept full timestamps too and keep only the day.
	if len(s) > len(DateLayout) {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		*d = DateOf(t)
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func validateCategory(c string) error {
	if strings.TrimSpace(c) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

func (d Draft) Validate() error {
	if !d.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, d.Kind)
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if err := validateCategory(d.Category); err != nil {
		return err
	}
	if err := validateDescription(d.Description); err != nil {
		return err
	}
	return d.Date.Validate()
}

// Normalize trims user input in place.
func (d *Draft) Normalize() {
	d.Category = strings.TrimSpace(d.Category)
	d.Description = strings.TrimSpace(d.Description)
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Kind == nil && p.Amount == nil && p.Category == nil && p.Description == nil && p.Date == nil
}

func (p Patch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Kind != nil && !p.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, *p.Kind)
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Category != nil {
		if err := validateCategory(*p.Category); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Date != nil {
		return p.Date.Validate()
	}
	return nil
}

// Apply returns tx with the patch's fields overwritten. Identity fields are
// never touched.
func (p Patch) Apply(tx Transaction) Transaction {
	if p.Kind != nil {
		tx.Kind = *p.Kind
	}
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Category != nil {
		tx.Category = strings.TrimSpace(*p.Category)
	}
	if p.Description != nil {
		tx.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	return tx
}
