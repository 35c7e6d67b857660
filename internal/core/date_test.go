package core

import "testing"

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2026-01-05", true},
		{"2026-12-31", true},
		{"2026-13-01", false},
		{"2026-02-30", false},
		{"05/01/2026", false},
		{"2026-1-5", false},
		{"", false},
	}
	for i, tc := range cases {
		_, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error for %q", i, tc.in)
		}
	}
}

func TestDateOrderingIsLexicographic(t *testing.T) {
	a := NewDate(2026, 1, 31)
	b := NewDate(2026, 2, 1)
	c := NewDate(2027, 1, 1)
	if !a.Before(b) || !b.Before(c) {
		t.Fatalf("ordering broken: %s %s %s", a, b, c)
	}
	if b.After(c) {
		t.Fatal("b should not sort after c")
	}
}

func TestDateAddDays(t *testing.T) {
	d := NewDate(2026, 3, 1)
	if got := d.AddDays(-1); got != NewDate(2026, 2, 28) {
		t.Errorf("got %s", got)
	}
	if got := d.AddDays(31); got != NewDate(2026, 4, 1) {
		t.Errorf("got %s", got)
	}
	if got := Date("nope").AddDays(1); got != "" {
		t.Errorf("invalid date should add to empty, got %q", got)
	}
}

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		from, to Date
		want     int
	}{
		{NewDate(2026, 3, 5), NewDate(2026, 3, 15), 10},
		{NewDate(2026, 3, 15), NewDate(2026, 3, 5), -10},
		{NewDate(2026, 2, 27), NewDate(2026, 3, 1), 2}, // across month end
		{NewDate(2026, 1, 1), NewDate(2026, 1, 1), 0},
		{Date("bad"), NewDate(2026, 1, 1), 0},
	}
	for i, tc := range cases {
		if got := DaysBetween(tc.from, tc.to); got != tc.want {
			t.Errorf("case %d: DaysBetween(%s, %s) = %d, want %d", i, tc.from, tc.to, got, tc.want)
		}
	}
}
