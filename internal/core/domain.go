package core

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the ISO calendar-date layout used on every wire and column.
const DateLayout = "2006-01-02"

const (
	Need TransactionType = "need"
	Want TransactionType = "want"
)

const (
	IconPiggyBank GoalIcon = "piggy-bank"
	IconLaptop    GoalIcon = "laptop"
	IconCalendar  GoalIcon = "calendar"
)

const (
	NudgeWarning     NudgeType = "warning"
	NudgeTip         NudgeType = "tip"
	NudgeAchievement NudgeType = "achievement"
)

type (
	TransactionType string
	GoalIcon        string
	NudgeType       string

	// Date is a calendar date without a time component, pinned to UTC midnight.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string
		OwnerID     string
		Description string
		Amount      Money
		Category    string
		Type        TransactionType
		Date        Date
		CreatedAt   time.Time
	}

	// TransactionInput is the normalized payload accepted by the record store.
	TransactionInput struct {
		Description string
		Amount      Money
		Category    string
		Type        TransactionType
		Date        Date
	}

	SavingsGoal struct {
		ID            string
		OwnerID       string
		Name          string
		IconName      GoalIcon
		TargetAmount  Money
		CurrentAmount Money
		Deadline      Date
		CreatedAt     time.Time
	}

	// GoalInput carries every replaceable goal field.
	GoalInput struct {
		Name          string
		IconName      GoalIcon
		TargetAmount  Money
		CurrentAmount Money
		Deadline      Date
	}

	Nudge struct {
		ID      string
		Type    NudgeType
		Message string
		Date    Date
		Read    bool
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyName        = errors.New("empty goal name")
	ErrInvalidIcon      = errors.New("invalid goal icon")
	ErrZeroTarget       = errors.New("goal target amount is zero")
	ErrPercentRange     = errors.New("percentage out of range")
)

// TransactionTypes lists the accepted transaction types.
var TransactionTypes = []TransactionType{Need, Want}

// GoalIcons lists the selectable goal icons.
var GoalIcons = []GoalIcon{IconPiggyBank, IconLaptop, IconCalendar}

// Categories is the suggestion list offered by the transaction form.
var Categories = []string{"Groceries", "Dining", "Transportation", "Entertainment", "Utilities", "Rent", "Shopping", "Other"}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or a full timestamp, keeping only the date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if i := strings.IndexByte(s, 'T'); i > 0 {
		if !isTimestamp(s) {
			return Date{}, ErrInvalidDate
		}
		s = s[:i]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// timestampLayouts are the forms a deadline or date column may arrive in,
// with or without a zone offset.
var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"}

func isTimestamp(s string) bool {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Compare orders two dates by calendar value.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON overrides time.Time's RFC 3339 encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	return d.UnmarshalText([]byte(s))
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Need, Want:
		return true
	default:
		return false
	}
}

func (i GoalIcon) IsValid() bool {
	switch i {
	case IconPiggyBank, IconLaptop, IconCalendar:
		return true
	default:
		return false
	}
}

func (in TransactionInput) Validate() error {
	if strings.TrimSpace(in.Description) == "" {
		return ErrEmptyDescription
	}
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !in.Type.IsValid() {
		return ErrInvalidType
	}
	return in.Date.Validate()
}

func (in GoalInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	if !in.IconName.IsValid() {
		return ErrInvalidIcon
	}
	if !in.TargetAmount.IsPositive() || in.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	return in.Deadline.Validate()
}

// Input returns the replaceable fields of the goal.
func (g SavingsGoal) Input() GoalInput {
	return GoalInput{
		Name:          g.Name,
		IconName:      g.IconName,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		Deadline:      g.Deadline,
	}
}
