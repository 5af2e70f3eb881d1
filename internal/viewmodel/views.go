package viewmodel

import (
	"time"

	"savvy/internal/core"
)

type TransactionView struct {
	ID          string               `json:"id"`
	Description string               `json:"description"`
	Amount      core.Money           `json:"amount"`
	Category    string               `json:"category"`
	Type        core.TransactionType `json:"type"`
	Date        core.Date            `json:"date"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// TransactionList is the sorted read model of the transaction table.
type TransactionList struct {
	Sort  SortState         `json:"sort"`
	Items []TransactionView `json:"items"`
}

// GoalView is a savings goal with its derived progress.
//
// ProgressDefined is false when the target is not positive. Percent is then
// zero and carries no meaning.
type GoalView struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	IconName        core.GoalIcon `json:"iconName"`
	TargetAmount    core.Money    `json:"targetAmount"`
	CurrentAmount   core.Money    `json:"currentAmount"`
	Deadline        core.Date     `json:"deadline"`
	Percent         int64         `json:"percent"`
	ProgressDefined bool          `json:"progressDefined"`
}

type SpendingBar struct {
	Month string     `json:"month"`
	Needs core.Money `json:"needs"`
	Wants core.Money `json:"wants"`
}

type NudgeView struct {
	ID      string         `json:"id"`
	Type    core.NudgeType `json:"type"`
	Message string         `json:"message"`
	Date    core.Date      `json:"date"`
	Read    bool           `json:"read"`
}

type NudgeFeed struct {
	Unread int         `json:"unread"`
	Items  []NudgeView `json:"items"`
}

// ProfileView backs the profile summary card. DaysLeftPlaceholder is a
// figure copied from reference data and is not derived from any date.
type ProfileView struct {
	MonthlyIncome        core.Money `json:"monthlyIncome"`
	MonthlySavingsTarget core.Money `json:"monthlySavingsTarget"`
	SavedThisMonth       core.Money `json:"savedThisMonth"`
	SavingsPercent       int64      `json:"savingsPercent"`
	ProgressDefined      bool       `json:"progressDefined"`
	DaysLeftPlaceholder  int        `json:"daysLeftPlaceholder"`
}

// ProgressPercent returns round(current / target * 100) with halves rounded
// away from zero. Values above 100 are returned unclamped. A target that is
// not positive yields core.ErrZeroTarget; one too large for an int64 yields
// core.ErrPercentRange.
func ProgressPercent(current, target core.Money) (int64, error) {
	return current.Percent(target)
}

func progress(current, target core.Money) (int64, bool) {
	p, err := ProgressPercent(current, target)
	if err != nil {
		return 0, false
	}
	return p, true
}

// Transactions builds the table read model in the requested order.
func (s Sorter) Transactions(txs []core.Transaction, st SortState) TransactionList {
	sorted := s.Sort(txs, st)
	items := make([]TransactionView, 0, len(sorted))
	for _, t := range sorted {
		items = append(items, Transaction(t))
	}
	return TransactionList{Sort: st, Items: items}
}

func Transaction(t core.Transaction) TransactionView {
	return TransactionView{
		ID:          t.ID,
		Description: t.Description,
		Amount:      t.Amount,
		Category:    t.Category,
		Type:        t.Type,
		Date:        t.Date,
		CreatedAt:   t.CreatedAt,
	}
}

func Goal(g core.SavingsGoal) GoalView {
	p, ok := progress(g.CurrentAmount, g.TargetAmount)
	return GoalView{
		ID:              g.ID,
		Name:            g.Name,
		IconName:        g.IconName,
		TargetAmount:    g.TargetAmount,
		CurrentAmount:   g.CurrentAmount,
		Deadline:        g.Deadline,
		Percent:         p,
		ProgressDefined: ok,
	}
}

// Goals keeps the store's order.
func Goals(goals []core.SavingsGoal) []GoalView {
	out := make([]GoalView, 0, len(goals))
	for _, g := range goals {
		out = append(out, Goal(g))
	}
	return out
}

// MonthlySpendingChart passes reference totals through unchanged.
func MonthlySpendingChart(months []core.MonthlySpending) []SpendingBar {
	out := make([]SpendingBar, 0, len(months))
	for _, m := range months {
		out = append(out, SpendingBar{Month: m.Month, Needs: m.Needs, Wants: m.Wants})
	}
	return out
}

func Nudges(nudges []core.Nudge) NudgeFeed {
	feed := NudgeFeed{Items: make([]NudgeView, 0, len(nudges))}
	for _, n := range nudges {
		if !n.Read {
			feed.Unread++
		}
		feed.Items = append(feed.Items, NudgeView{
			ID:      n.ID,
			Type:    n.Type,
			Message: n.Message,
			Date:    n.Date,
			Read:    n.Read,
		})
	}
	return feed
}

func ProfileSummary(p core.Profile) ProfileView {
	pct, ok := progress(p.SavedThisMonth, p.MonthlySavingsTarget)
	return ProfileView{
		MonthlyIncome:        p.MonthlyIncome,
		MonthlySavingsTarget: p.MonthlySavingsTarget,
		SavedThisMonth:       p.SavedThisMonth,
		SavingsPercent:       pct,
		ProgressDefined:      ok,
		DaysLeftPlaceholder:  p.DaysLeft,
	}
}
