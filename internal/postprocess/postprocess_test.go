package postprocess

import (
	"reflect"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "plain translation",
			input:    "  Everything is impermanent.\n",
			expected: "Everything is impermanent.",
		},
		{
			name:     "think block",
			input:    "<think>The term 无常 maps to impermanence.</think>\nEverything is impermanent.",
			expected: "Everything is impermanent.",
		},
		{
			name:     "truncated reasoning",
			input:    "All is suffering.<reasoning>cut off",
			expected: "All is suffering.",
		},
		{
			name:     "translation label",
			input:    "Translation: The path to liberation is long.",
			expected: "The path to liberation is long.",
		},
		{
			name:     "polite preamble",
			input:    "Sure, here is the English translation: Form is emptiness.",
			expected: "Form is emptiness.",
		},
		{
			name:     "chinese label",
			input:    "译文：Form is emptiness.",
			expected: "Form is emptiness.",
		},
		{
			name:     "wrapped in quotes",
			input:    "\"Form is emptiness.\"",
			expected: "Form is emptiness.",
		},
		{
			name:     "wrapped in curly quotes",
			input:    "“Form is emptiness.”",
			expected: "Form is emptiness.",
		},
		{
			name:     "two quoted phrases stay",
			input:    "\"form\" and \"emptiness\"",
			expected: "\"form\" and \"emptiness\"",
		},
		{
			name:     "article before label",
			input:    "The translation: a note.",
			expected: "a note.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSplitTerms(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty",
			input:    "",
			expected: nil,
		},
		{
			name:     "space separated",
			input:    "无常 苦难  涅槃",
			expected: []string{"无常", "苦难", "涅槃"},
		},
		{
			name:     "cjk punctuation",
			input:    "无常、苦难，涅槃；般若",
			expected: []string{"无常", "苦难", "涅槃", "般若"},
		},
		{
			name:     "numbered list",
			input:    "1. 无常\n2. 苦难\n- 涅槃",
			expected: []string{"无常", "苦难", "涅槃"},
		},
		{
			name:     "quoted and duplicated",
			input:    "「无常」 \"无常\" 《般若》",
			expected: []string{"无常", "般若"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitTerms(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("SplitTerms(%q) = %#v, want %#v", tt.input, got, tt.expected)
			}
		})
	}
}
