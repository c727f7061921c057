package ratelimit

import (
	"net/http"
	"strconv"
	"testing"
	"time"
)

func TestWindow_ActiveAt(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		window   *Window
		expected bool
	}{
		{
			name:     "nil window",
			window:   nil,
			expected: false,
		},
		{
			name:     "reset in future",
			window:   &Window{ResetAt: now.Add(time.Minute)},
			expected: true,
		},
		{
			name:     "reset passed",
			window:   &Window{ResetAt: now.Add(-time.Minute)},
			expected: false,
		},
		{
			name:     "reset exactly now",
			window:   &Window{ResetAt: now},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.window.ActiveAt(now); got != tt.expected {
				t.Errorf("ActiveAt() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWindow_Exhausted(t *testing.T) {
	tests := []struct {
		remaining int
		expected  bool
	}{
		{remaining: 5000, expected: false},
		{remaining: 1, expected: false},
		{remaining: 0, expected: true},
		{remaining: RemainingUnknown, expected: true},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.remaining), func(t *testing.T) {
			w := &Window{Remaining: tt.remaining}
			if got := w.Exhausted(); got != tt.expected {
				t.Errorf("Exhausted() = %v, want %v (remaining=%d)", got, tt.expected, tt.remaining)
			}
		})
	}
}

func TestWindow_TimeUntilReset(t *testing.T) {
	w := &Window{ResetAt: time.Now().Add(-5 * time.Minute)}
	if got := w.TimeUntilReset(); got != 0 {
		t.Errorf("TimeUntilReset() = %v, want 0 for past reset time", got)
	}

	w = &Window{ResetAt: time.Now().Add(5 * time.Minute)}
	got := w.TimeUntilReset()
	if got < 5*time.Minute-time.Second || got > 5*time.Minute {
		t.Errorf("TimeUntilReset() = %v, want approximately 5m", got)
	}
}

func TestWindowFromHeaders(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute).Unix()

	tests := []struct {
		name          string
		headers       map[string]string
		wantOK        bool
		wantRemaining int
		wantLimit     int
	}{
		{
			name: "core window",
			headers: map[string]string{
				HeaderRemaining: "4999",
				HeaderReset:     strconv.FormatInt(reset, 10),
				HeaderLimit:     "5000",
				HeaderResource:  "core",
			},
			wantOK:        true,
			wantRemaining: 4999,
			wantLimit:     5000,
		},
		{
			name: "no resource header",
			headers: map[string]string{
				HeaderRemaining: "0",
				HeaderReset:     strconv.FormatInt(reset, 10),
			},
			wantOK:        true,
			wantRemaining: 0,
		},
		{
			name: "reset without remaining",
			headers: map[string]string{
				HeaderReset: strconv.FormatInt(reset, 10),
			},
			wantOK:        true,
			wantRemaining: RemainingUnknown,
		},
		{
			name: "search resource ignored",
			headers: map[string]string{
				HeaderRemaining: "9",
				HeaderReset:     strconv.FormatInt(reset, 10),
				HeaderResource:  "search",
			},
			wantOK: false,
		},
		{
			name: "missing reset",
			headers: map[string]string{
				HeaderRemaining: "10",
			},
			wantOK: false,
		},
		{
			name: "malformed reset",
			headers: map[string]string{
				HeaderReset: "soon",
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}

			w, ok := WindowFromHeaders(h)
			if ok != tt.wantOK {
				t.Fatalf("WindowFromHeaders() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if w.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", w.Remaining, tt.wantRemaining)
			}
			if w.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", w.Limit, tt.wantLimit)
			}
			if w.ResetAt.Unix() != reset {
				t.Errorf("ResetAt = %d, want %d", w.ResetAt.Unix(), reset)
			}
		})
	}
}
