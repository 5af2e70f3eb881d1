// Package viewmodel turns raw records and UI state into display-ready
// structures. Everything here is a pure transform: inputs are never mutated
// and no function performs I/O.
package viewmodel

import (
	"fmt"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"savvy/internal/core"
)

type SortField string

type SortDirection string

const (
	SortByDate        SortField = "date"
	SortByDescription SortField = "description"
	SortByCategory    SortField = "category"
	SortByType        SortField = "type"
	SortByAmount      SortField = "amount"
)

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// SortFields lists the sortable columns in display order.
var SortFields = []SortField{SortByDate, SortByDescription, SortByCategory, SortByType, SortByAmount}

// SortState is the current column and direction of the transaction table.
type SortState struct {
	Field     SortField     `json:"field"`
	Direction SortDirection `json:"direction"`
}

// DefaultSortState shows the newest transactions first.
var DefaultSortState = SortState{Field: SortByDate, Direction: Desc}

func ParseSortField(s string) (SortField, error) {
	for _, f := range SortFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

func ParseSortDirection(s string) (SortDirection, error) {
	switch SortDirection(s) {
	case Asc, Desc:
		return SortDirection(s), nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", s)
	}
}

// Toggle selects a column. Selecting the active column flips its direction;
// any other column starts descending.
func (s SortState) Toggle(field SortField) SortState {
	if field == s.Field {
		if s.Direction == Desc {
			return SortState{Field: field, Direction: Asc}
		}
		return SortState{Field: field, Direction: Desc}
	}
	return SortState{Field: field, Direction: Desc}
}

// Sorter orders transactions, comparing text columns with the collation
// rules of its language.
type Sorter struct {
	tag language.Tag
}

// NewSorter parses a BCP 47 tag such as "en" or "en-IN".
func NewSorter(locale string) (Sorter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return Sorter{}, fmt.Errorf("parse collation locale %q: %w", locale, err)
	}
	return Sorter{tag: tag}, nil
}

// Sort returns a new slice ordered by the state's column. The sort is
// stable in both directions: rows with equal keys keep their input order.
func (s Sorter) Sort(txs []core.Transaction, st SortState) []core.Transaction {
	out := slices.Clone(txs)
	// collate.Collator keeps internal buffers and is not safe to share.
	col := collate.New(s.tag)
	cmp := compareFunc(st.Field, col)
	if st.Direction == Desc {
		asc := cmp
		cmp = func(a, b core.Transaction) int { return -asc(a, b) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}

func compareFunc(field SortField, col *collate.Collator) func(a, b core.Transaction) int {
	switch field {
	case SortByDescription:
		return func(a, b core.Transaction) int { return col.CompareString(a.Description, b.Description) }
	case SortByCategory:
		return func(a, b core.Transaction) int { return col.CompareString(a.Category, b.Category) }
	case SortByType:
		return func(a, b core.Transaction) int { return col.CompareString(string(a.Type), string(b.Type)) }
	case SortByAmount:
		return func(a, b core.Transaction) int { return a.Amount.Cmp(b.Amount) }
	default:
		return func(a, b core.Transaction) int { return a.Date.Compare(b.Date) }
	}
}

var english = Sorter{tag: language.English}

// SortTransactions sorts with English collation.
func SortTransactions(txs []core.Transaction, st SortState) []core.Transaction {
	return english.Sort(txs, st)
}
