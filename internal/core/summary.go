package core

// MonthlySpending is one bar of the spending chart: totals by transaction type.
type MonthlySpending struct {
	Month string
	Needs Money
	Wants Money
}

// Profile holds the per-user figures shown in the profile summary card.
type Profile struct {
	MonthlyIncome        Money
	MonthlySavingsTarget Money
	SavedThisMonth       Money
	// DaysLeft is carried verbatim from reference data; nothing derives it.
	DaysLeft int
}
