package main

import (
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.Local)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-02T03:04:05Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2024-01-31", time.Date(2024, 1, 31, 0, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		got, err := parseTime(tt.in, now)
		if err != nil {
			t.Fatalf("parseTime(%q) failed: %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTime_Phrase(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.Local)

	got, err := parseTime("yesterday", now)
	if err != nil {
		t.Fatalf("parseTime(yesterday) failed: %v", err)
	}
	if y, m, d := got.Date(); y != 2024 || m != time.March || d != 14 {
		t.Errorf("parseTime(yesterday) = %v, want 2024-03-14", got)
	}
}

func TestParseTime_Unrecognized(t *testing.T) {
	if _, err := parseTime("qwxz", time.Now()); err == nil {
		t.Error("parseTime() accepted gibberish")
	}
}
