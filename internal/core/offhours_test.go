package core_test

import (
	"testing"
	"time"

	"farmgate/internal/core"
)

func TestInWorkingHours(t *testing.T) {
	at := func(hour, minute int) time.Time {
		return time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"midnight", at(0, 0), false},
		{"just before open", at(5, 59), false},
		{"opening boundary", at(6, 0), true},
		{"midday", at(12, 30), true},
		{"closing boundary", at(18, 0), true},
		{"just after close", at(18, 1), false},
		{"late evening", at(23, 45), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := core.InWorkingHours(tt.t); got != tt.want {
				t.Errorf("InWorkingHours(%s) = %v, want %v", tt.t.Format("15:04"), got, tt.want)
			}
		})
	}
}
