package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")

	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"release", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"not-a-level", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		SetLevel(tt.input)
		if got := zerolog.GlobalLevel(); got != tt.want {
			t.Errorf("SetLevel(%q): global level = %v, want %v", tt.input, got, tt.want)
		}
		if got := Log.GetLevel(); got != tt.want {
			t.Errorf("SetLevel(%q): logger level = %v, want %v", tt.input, got, tt.want)
		}
	}
}
