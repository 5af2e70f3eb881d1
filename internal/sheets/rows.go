package sheets

import (
	"fmt"
	"strings"
	"time"

	"savvy/internal/records"
)

// TransactionValues lays a transaction out in TransactionHeader order.
// Amounts are written as exact decimal strings.
func TransactionValues(r records.TransactionRow) []any {
	return []any{r.ID, r.Date, r.Description, r.Category, r.Type, r.Amount.String(), r.UserID, formatTime(r.CreatedAt)}
}

// GoalValues lays a goal out in GoalHeader order.
func GoalValues(r records.GoalRow) []any {
	return []any{r.ID, r.Name, r.IconName, r.TargetAmount.String(), r.CurrentAmount.String(), r.Deadline, r.UserID, formatTime(r.CreatedAt)}
}

// HeaderValues converts a header to a sheet row.
func HeaderValues(h []string) []any {
	out := make([]any, len(h))
	for i, v := range h {
		out[i] = v
	}
	return out
}

// FindRow returns the 1-based sheet row whose first cell equals id, or 0.
// The header row never matches.
func FindRow(values [][]any, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0
	}
	for i, row := range values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

// HasHeader reports whether the first row matches header, ignoring case.
func HasHeader(values [][]any, header []string) bool {
	if len(values) == 0 || len(values[0]) < len(header) {
		return false
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(fmt.Sprint(values[0][i])), h) {
			return false
		}
	}
	return true
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
