package deadline

import (
	"errors"
	"testing"
	"time"
)

// now is a fixed reference instant: 2025-06-15 10:30 UTC.
var now = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func eod(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 23, 59, 59, 999_000_000, time.UTC)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    time.Time
		matched bool
	}{
		{"today", "сегодня вечером", eod(2025, 6, 15), true},
		{"tomorrow", "Завтра", eod(2025, 6, 16), true},
		{"in 3 days", "через 3 дня", eod(2025, 6, 18), true},
		{"in 1 day", "через 1 день", eod(2025, 6, 16), true},
		{"in 10 days", "через 10 дней", eod(2025, 6, 25), true},
		{"in 2 hours exact instant", "через 2 часа", now.Add(2 * time.Hour), true},
		{"in 1 hour", "через 1 час", now.Add(time.Hour), true},
		{"iso date", "2025-12-31", eod(2025, 12, 31), true},
		{"iso date inside text", "к 2026-01-15 пожалуйста", eod(2026, 1, 15), true},
		{"today beats iso when both present", "сегодня или 2025-12-31", eod(2025, 6, 15), true},
		{"tomorrow beats in-days", "завтра или через 5 дней", eod(2025, 6, 16), true},
		{"no deadline", "как-нибудь потом", time.Time{}, false},
		{"empty", "", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, matched := Resolve(tt.text, now)
			if matched != tt.matched {
				t.Fatalf("Resolve(%q) matched = %v, want %v", tt.text, matched, tt.matched)
			}
			if matched && !got.Equal(tt.want) {
				t.Errorf("Resolve(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestResolveNeverReturnsPastForSupportedInputs(t *testing.T) {
	inputs := []string{"сегодня", "завтра", "через 2 дня", "через 5 часов", "2099-01-01"}
	for _, in := range inputs {
		ts, matched := Resolve(in, now)
		if !matched {
			t.Errorf("Resolve(%q) did not match", in)
			continue
		}
		if ts.Before(now) {
			t.Errorf("Resolve(%q) = %v, before reference time %v", in, ts, now)
		}
	}
}

func TestFromChoice(t *testing.T) {
	tests := []struct {
		choice  string
		want    time.Time
		matched bool
	}{
		{"today", eod(2025, 6, 15), true},
		{"tomorrow", eod(2025, 6, 16), true},
		{"3days", eod(2025, 6, 18), true},
		{"week", eod(2025, 6, 22), true},
		{"none", time.Time{}, false},
		{"garbage", time.Time{}, false},
	}

	for _, tt := range tests {
		got, matched := FromChoice(tt.choice, now)
		if matched != tt.matched {
			t.Errorf("FromChoice(%q) matched = %v, want %v", tt.choice, matched, tt.matched)
			continue
		}
		if matched && !got.Equal(tt.want) {
			t.Errorf("FromChoice(%q) = %v, want %v", tt.choice, got, tt.want)
		}
	}
}

func TestParseHours(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"3", 3, false},
		{" 24 ", 24, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"abc", 0, true},
		{"3.5", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseHours(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHours(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrBadFormat) {
			t.Errorf("ParseHours(%q) error %v does not wrap ErrBadFormat", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseHours(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr error
	}{
		{"iso future", "2099-01-01", eod(2099, 1, 1), nil},
		{"dotted future", "31.12.2025", eod(2025, 12, 31), nil},
		{"dotted single digits", "1.7.2025", eod(2025, 7, 1), nil},
		{"same day is allowed", "15.06.2025", eod(2025, 6, 15), nil},
		{"past date", "2020-01-01", time.Time{}, ErrPastDate},
		{"yesterday dotted", "14.06.2025", time.Time{}, ErrPastDate},
		{"nonexistent date", "2025-02-30", time.Time{}, ErrBadFormat},
		{"malformed", "31/12/2025", time.Time{}, ErrBadFormat},
		{"prose", "завтра", time.Time{}, ErrBadFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseDate(%q) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) error = %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
