package logger

import "testing"

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		wantNil bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"verbose", true},
		{"", true},
	}
	for _, tt := range tests {
		got := parseLevel(tt.in)
		if (got == nil) != tt.wantNil {
			t.Errorf("parseLevel(%q) nil = %v, want %v", tt.in, got == nil, tt.wantNil)
		}
	}
}

func TestNopLoggerWith(t *testing.T) {
	log := NewNop().With(Resource("web"), Int("attempt", 1))
	// Must not panic on any level.
	log.Debug("debug")
	log.Info("info", Bool("ok", true))
	log.Warnf("warn %d", 1)
	if err := log.Sync(); err != nil {
		t.Logf("sync returned %v", err)
	}
}
