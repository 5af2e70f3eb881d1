// Package reference loads the static dashboard data that has no record
// store collection: nudges, the monthly spending chart, profile targets and
// demo rows.
package reference

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"savvy/internal/core"
)

//go:embed default.yaml
var defaultYAML []byte

// Data is the decoded reference file.
type Data struct {
	Name               string
	Email              string
	Profile            core.Profile
	MonthlySpending    []core.MonthlySpending
	Nudges             []core.Nudge
	SampleTransactions []core.Transaction
	SampleGoals        []core.SavingsGoal
}

type fileProfile struct {
	Name                 string `yaml:"name"`
	Email                string `yaml:"email"`
	MonthlyIncome        string `yaml:"monthly_income"`
	MonthlySavingsTarget string `yaml:"monthly_savings_target"`
	SavedThisMonth       string `yaml:"saved_this_month"`
	DaysLeft             int    `yaml:"days_left"`
}

type fileMonth struct {
	Month string `yaml:"month"`
	Needs string `yaml:"needs"`
	Wants string `yaml:"wants"`
}

type fileNudge struct {
	ID      string `yaml:"id"`
	Type    string `yaml:"type"`
	Message string `yaml:"message"`
	Date    string `yaml:"date"`
	Read    bool   `yaml:"read"`
}

type fileTransaction struct {
	ID          string `yaml:"id"`
	Date        string `yaml:"date"`
	Amount      string `yaml:"amount"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
}

type fileGoal struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	TargetAmount  string `yaml:"targetamount"`
	CurrentAmount string `yaml:"currentamount"`
	Deadline      string `yaml:"deadline"`
	IconName      string `yaml:"iconname"`
}

type file struct {
	Profile            fileProfile       `yaml:"profile"`
	MonthlySpending    []fileMonth       `yaml:"monthly_spending"`
	Nudges             []fileNudge       `yaml:"nudges"`
	SampleTransactions []fileTransaction `yaml:"sample_transactions"`
	SampleGoals        []fileGoal        `yaml:"sample_goals"`
}

// Default returns the embedded reference data.
func Default() (*Data, error) {
	return Parse(defaultYAML)
}

// Load reads a reference file, falling back to the embedded data when path
// is empty.
func Load(path string) (*Data, error) {
	if path == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference data: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Data, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode reference data: %w", err)
	}
	p := &parser{}
	d := &Data{
		Name:  f.Profile.Name,
		Email: f.Profile.Email,
		Profile: core.Profile{
			MonthlyIncome:        p.money("profile.monthly_income", f.Profile.MonthlyIncome),
			MonthlySavingsTarget: p.money("profile.monthly_savings_target", f.Profile.MonthlySavingsTarget),
			SavedThisMonth:       p.money("profile.saved_this_month", f.Profile.SavedThisMonth),
			DaysLeft:             f.Profile.DaysLeft,
		},
	}
	for i, m := range f.MonthlySpending {
		if m.Month == "" {
			p.fail("monthly_spending[%d]: month is required", i)
		}
		d.MonthlySpending = append(d.MonthlySpending, core.MonthlySpending{
			Month: m.Month,
			Needs: p.money(fmt.Sprintf("monthly_spending[%d].needs", i), m.Needs),
			Wants: p.money(fmt.Sprintf("monthly_spending[%d].wants", i), m.Wants),
		})
	}
	for i, n := range f.Nudges {
		t := core.NudgeType(n.Type)
		switch t {
		case core.NudgeWarning, core.NudgeTip, core.NudgeAchievement:
		default:
			p.fail("nudges[%d]: unknown type %q", i, n.Type)
		}
		d.Nudges = append(d.Nudges, core.Nudge{
			ID:      n.ID,
			Type:    t,
			Message: n.Message,
			Date:    p.date(fmt.Sprintf("nudges[%d].date", i), n.Date),
			Read:    n.Read,
		})
	}
	// sample rows get distinct creation times so store ordering is stable
	base := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, t := range f.SampleTransactions {
		d.SampleTransactions = append(d.SampleTransactions, core.Transaction{
			ID:          t.ID,
			Description: t.Description,
			Amount:      p.money(fmt.Sprintf("sample_transactions[%d].amount", i), t.Amount),
			Category:    t.Category,
			Type:        core.TransactionType(t.Type),
			Date:        p.date(fmt.Sprintf("sample_transactions[%d].date", i), t.Date),
			CreatedAt:   base.Add(time.Duration(len(f.SampleTransactions)-i) * time.Minute),
		})
	}
	for i, g := range f.SampleGoals {
		d.SampleGoals = append(d.SampleGoals, core.SavingsGoal{
			ID:            g.ID,
			Name:          g.Name,
			IconName:      core.GoalIcon(g.IconName),
			TargetAmount:  p.money(fmt.Sprintf("sample_goals[%d].targetamount", i), g.TargetAmount),
			CurrentAmount: p.money(fmt.Sprintf("sample_goals[%d].currentamount", i), g.CurrentAmount),
			Deadline:      p.date(fmt.Sprintf("sample_goals[%d].deadline", i), g.Deadline),
			CreatedAt:     base.Add(time.Duration(len(f.SampleGoals)-i) * time.Minute),
		})
	}
	if p.err != nil {
		return nil, p.err
	}
	return d, nil
}

// parser keeps the first conversion error.
type parser struct {
	err error
}

func (p *parser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("reference data: "+format, args...)
	}
}

func (p *parser) money(field, s string) core.Money {
	if s == "" {
		return core.Money{}
	}
	m, err := core.ParseMoney(s)
	if err != nil {
		p.fail("%s: %v", field, err)
	}
	return m
}

func (p *parser) date(field, s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		p.fail("%s: %v", field, err)
	}
	return d
}
