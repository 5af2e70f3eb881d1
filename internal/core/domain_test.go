package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2023-04-01", "2023-04-01", true},
		{" 2023-12-31 ", "2023-12-31", true},
		{"2023-08-15T00:00:00+00:00", "2023-08-15", true},
		{"2023-08-15T23:59:59Z", "2023-08-15", true},
		{"", "", false},
		{"04/01/2023", "", false},
		{"2023-02-30", "", false},
		{"2023-04-01T10:30:00.123456", "2023-04-01", true},
		{"2023-04-01Tgarbage", "", false},
		{"2023-04-01T25:00:00Z", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestDateCompareIsCalendarOrder(t *testing.T) {
	a := NewDate(2023, 4, 1)
	b := NewDate(2023, 4, 2)
	if a.Compare(b) >= 0 || b.Compare(a) <= 0 || a.Compare(NewDate(2023, 4, 1)) != 0 {
		t.Fatalf("unexpected ordering between %s and %s", a, b)
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		D Date `json:"d"`
	}{NewDate(2023, 4, 3)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"d":"2023-04-03"}` {
		t.Fatalf("unexpected json %s", b)
	}

	var out struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2023-12-31T00:00:00"}`), &out); err != nil {
		t.Fatal(err)
	}
	if !out.D.Equal(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", out.D)
	}
}

func TestTransactionInputValidate(t *testing.T) {
	good := TransactionInput{
		Description: "Grocery Shopping",
		Amount:      MoneyFromInt(1200),
		Category:    "Groceries",
		Type:        Need,
		Date:        NewDate(2023, 4, 2),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []TransactionInput{
		{Description: "", Amount: MoneyFromInt(1), Type: Need, Date: NewDate(2023, 1, 1)},
		{Description: "abc", Amount: MoneyFromInt(0), Type: Need, Date: NewDate(2023, 1, 1)},
		{Description: "abc", Amount: MoneyFromInt(1), Type: "luxury", Date: NewDate(2023, 1, 1)},
		{Description: "abc", Amount: MoneyFromInt(1), Type: Want},
	}
	for i, in := range bads {
		if err := in.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestGoalInputValidate(t *testing.T) {
	good := GoalInput{
		Name:          "Emergency Fund",
		IconName:      IconPiggyBank,
		TargetAmount:  MoneyFromInt(50000),
		CurrentAmount: MoneyFromInt(0),
		Deadline:      NewDate(2023, 12, 31),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	over := good
	over.CurrentAmount = MoneyFromInt(60000)
	if err := over.Validate(); err != nil {
		t.Fatalf("current above target must be accepted, got %v", err)
	}

	bads := []GoalInput{
		{Name: "", IconName: IconLaptop, TargetAmount: MoneyFromInt(1), Deadline: NewDate(2023, 1, 1)},
		{Name: "Car", IconName: "rocket", TargetAmount: MoneyFromInt(1), Deadline: NewDate(2023, 1, 1)},
		{Name: "Car", IconName: IconLaptop, TargetAmount: MoneyFromInt(0), Deadline: NewDate(2023, 1, 1)},
		{Name: "Car", IconName: IconLaptop, TargetAmount: MoneyFromInt(1), CurrentAmount: MoneyFromInt(-1), Deadline: NewDate(2023, 1, 1)},
		{Name: "Car", IconName: IconLaptop, TargetAmount: MoneyFromInt(1)},
	}
	for i, in := range bads {
		if err := in.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
