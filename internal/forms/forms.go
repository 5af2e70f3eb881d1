// Package forms validates transaction and goal entry forms.
//
// Rules are declared as validator struct tags. Every failure is attached to
// the field that caused it, and a form with any failure never reaches the
// record store. A valid form is normalized into the core input type the
// store accepts.
package forms

import (
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"savvy/internal/core"
)

// TransactionForm is the raw transaction entry form.
type TransactionForm struct {
	Description string `json:"description" validate:"required,min=3"`
	Amount      string `json:"amount" validate:"required,posdecimal,maxamount"`
	Category    string `json:"category" validate:"required,category"`
	Type        string `json:"type" validate:"required,oneof=need want"`
	Date        string `json:"date" validate:"required,calendardate"`
}

// GoalForm is the raw goal entry form used for both create and update.
type GoalForm struct {
	Name          string `json:"name" validate:"required,min=3"`
	IconName      string `json:"iconName" validate:"required,oneof=piggy-bank laptop calendar"`
	TargetAmount  string `json:"targetAmount" validate:"required,posdecimal,maxamount"`
	CurrentAmount string `json:"currentAmount" validate:"required,nonnegdecimal,maxamount"`
	Deadline      string `json:"deadline" validate:"required,calendardate"`
}

// FieldErrors maps a form field to the message shown next to it.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

var messages = map[string]string{
	"description":   "Description must be at least 3 characters",
	"amount":        "Amount must be positive",
	"category":      "Please select a category",
	"type":          "Please select a type",
	"date":          "Please enter a date",
	"name":          "Name must be at least 3 characters",
	"iconName":      "Please select an icon",
	"targetAmount":  "Target amount must be positive",
	"currentAmount": "Current amount cannot be negative",
	"deadline":      "Please enter a deadline",
}

// tagMessages override messages for a single rule, keyed by validator tag.
var tagMessages = map[string]string{
	"maxamount": "Amount is too large",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("posdecimal", func(fl validator.FieldLevel) bool {
		m, err := core.ParseMoney(fl.Field().String())
		return err == nil && m.IsPositive()
	})
	_ = v.RegisterValidation("nonnegdecimal", func(fl validator.FieldLevel) bool {
		m, err := core.ParseMoney(fl.Field().String())
		return err == nil && !m.IsNegative()
	})
	_ = v.RegisterValidation("maxamount", func(fl validator.FieldLevel) bool {
		m, err := core.ParseMoney(fl.Field().String())
		return err == nil && m.Abs().LessThanOrEqual(core.MaxAmount.Decimal)
	})
	_ = v.RegisterValidation("calendardate", func(fl validator.FieldLevel) bool {
		_, err := core.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return IsCategory(fl.Field().String())
	})
	return v
}

// IsCategory reports whether c is one of the suggested categories.
func IsCategory(c string) bool {
	for _, known := range core.Categories {
		if c == known {
			return true
		}
	}
	return false
}

func check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fe := make(FieldErrors, len(verrs))
	for _, e := range verrs {
		msg, ok := tagMessages[e.Tag()]
		if !ok {
			msg, ok = messages[e.Field()]
		}
		if !ok {
			msg = "Invalid value"
		}
		fe[e.Field()] = msg
	}
	return fe
}

// ValidateTransaction checks the form and returns the normalized payload.
func ValidateTransaction(f TransactionForm) (core.TransactionInput, error) {
	f = TransactionForm{
		Description: strings.TrimSpace(f.Description),
		Amount:      strings.TrimSpace(f.Amount),
		Category:    strings.TrimSpace(f.Category),
		Type:        strings.TrimSpace(f.Type),
		Date:        strings.TrimSpace(f.Date),
	}
	if err := check(f); err != nil {
		return core.TransactionInput{}, err
	}
	amount, _ := core.ParseMoney(f.Amount)
	date, _ := core.ParseDate(f.Date)
	return core.TransactionInput{
		Description: f.Description,
		Amount:      amount,
		Category:    f.Category,
		Type:        core.TransactionType(f.Type),
		Date:        date,
	}, nil
}

// ValidateGoal checks the form and returns the normalized payload.
func ValidateGoal(f GoalForm) (core.GoalInput, error) {
	f = GoalForm{
		Name:          strings.TrimSpace(f.Name),
		IconName:      strings.TrimSpace(f.IconName),
		TargetAmount:  strings.TrimSpace(f.TargetAmount),
		CurrentAmount: strings.TrimSpace(f.CurrentAmount),
		Deadline:      strings.TrimSpace(f.Deadline),
	}
	if err := check(f); err != nil {
		return core.GoalInput{}, err
	}
	target, _ := core.ParseMoney(f.TargetAmount)
	current, _ := core.ParseMoney(f.CurrentAmount)
	deadline, _ := core.ParseDate(f.Deadline)
	return core.GoalInput{
		Name:          f.Name,
		IconName:      core.GoalIcon(f.IconName),
		TargetAmount:  target,
		CurrentAmount: current,
		Deadline:      deadline,
	}, nil
}

// GoalFormFrom pre-fills an edit form from a stored goal.
func GoalFormFrom(g core.SavingsGoal) GoalForm {
	return GoalForm{
		Name:          g.Name,
		IconName:      string(g.IconName),
		TargetAmount:  g.TargetAmount.String(),
		CurrentAmount: g.CurrentAmount.String(),
		Deadline:      g.Deadline.String(),
	}
}
