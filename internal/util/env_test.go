package util

import "testing"

func TestGetenvDefault(t *testing.T) {
	t.Setenv("KOTSEBOT_TEST_STR", "value")
	if got := GetenvDefault("KOTSEBOT_TEST_STR", "fallback"); got != "value" {
		t.Errorf("got %q, want value", got)
	}
	if got := GetenvDefault("KOTSEBOT_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("got %q, want fallback", got)
	}
	t.Setenv("KOTSEBOT_TEST_BLANK", "   ")
	if got := GetenvDefault("KOTSEBOT_TEST_BLANK", "fallback"); got != "fallback" {
		t.Errorf("blank value: got %q, want fallback", got)
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"off", true, false},
		{"0", true, false},
		{"", true, true},
		{"garbage", false, false},
	}
	for _, tt := range tests {
		t.Setenv("KOTSEBOT_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("KOTSEBOT_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("KOTSEBOT_TEST_INT", "42")
	if got := ParseIntEnv("KOTSEBOT_TEST_INT", 7); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	t.Setenv("KOTSEBOT_TEST_INT", "not-a-number")
	if got := ParseIntEnv("KOTSEBOT_TEST_INT", 7); got != 7 {
		t.Errorf("got %d, want default 7", got)
	}
}
