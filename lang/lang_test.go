package lang

import (
	"testing"
)

func TestCapitalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"sword", "Sword"},
		{"hello world", "Hello world"},
		{"ALREADY", "ALREADY"},
		{"a", "A"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Capitalize(tt.input); got != tt.expected {
				t.Errorf("Capitalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		count    int
		word     string
		expected string
	}{
		{0, "session", "0 sessions"},
		{1, "session", "1 session"},
		{2, "session", "2 sessions"},
		{3, "entry", "3 entries"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := Count(tt.count, tt.word); got != tt.expected {
				t.Errorf("Count(%d, %q) = %q, want %q", tt.count, tt.word, got, tt.expected)
			}
		})
	}
}

func TestEnumerator(t *testing.T) {
	tests := []struct {
		name     string
		enum     Enumerator
		elements []string
		expected string
	}{
		{
			name:     "single element",
			elements: []string{"sword"},
			expected: "sword",
		},
		{
			name:     "two elements",
			elements: []string{"sword", "shield"},
			expected: "sword and shield",
		},
		{
			name:     "three elements",
			elements: []string{"sword", "shield", "helmet"},
			expected: "sword, shield, and helmet",
		},
		{
			name:     "with or operator and pattern",
			enum:     Enumerator{Pattern: "[%s]", Operator: "or"},
			elements: []string{"create user", "login user"},
			expected: "[create user] or [login user]",
		},
		{
			name:     "present tense multiple",
			enum:     Enumerator{Tense: Present},
			elements: []string{"sword", "shield"},
			expected: "sword and shield are",
		},
		{
			name:     "past tense single",
			enum:     Enumerator{Tense: Past},
			elements: []string{"sword"},
			expected: "sword was",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.enum.Do(tt.elements...); got != tt.expected {
				t.Errorf("Enumerator.Do(%v) = %q, want %q", tt.elements, got, tt.expected)
			}
		})
	}
}

func TestPossessive(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"John", "John's"},
		{"James", "James'"},
		{"JESS", "JESS'"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Possessive(tt.input); got != tt.expected {
				t.Errorf("Possessive(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFill(t *testing.T) {
	for _, tc := range []struct {
		text  string
		width int
		want  string
	}{
		{"", 10, ""},
		{"cmd:boot, cmd:wall", 78, "cmd:boot, cmd:wall"},
		{"cmd:boot, cmd:wall, can_boot", 19, "cmd:boot, cmd:wall,\ncan_boot"},
		{"a verylongword b", 4, "a\nverylongword\nb"},
	} {
		if got := Fill(tc.text, tc.width); got != tc.want {
			t.Errorf("Fill(%q, %d) = %q, want %q", tc.text, tc.width, got, tc.want)
		}
	}
}
