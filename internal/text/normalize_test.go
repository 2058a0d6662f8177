// Package text_test tests the Russian text normalization pipeline.
package text_test

import (
	"testing"

	"github.com/book-expert/f5-tts-api/internal/text"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeInput(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty text passes through",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace collapsed and period appended",
			input: "Привет,   мир",
			want:  "Привет, мир.",
		},
		{
			name:  "existing punctuation kept",
			input: "Привет, мир!",
			want:  "Привет, мир!",
		},
		{
			name:  "em dash replaced",
			input: "Москва — столица",
			want:  "Москва - столица.",
		},
		{
			name:  "ellipsis character expanded",
			input: "Ну что же…",
			want:  "Ну что же...",
		},
		{
			name:  "numbers expanded to words",
			input: "В зале 42 места",
			want:  "В зале сорок два места.",
		},
		{
			name:  "newlines and tabs collapsed",
			input: "Первая строка\n\tвторая строка",
			want:  "Первая строка вторая строка.",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got := normalizer.NormalizeInput(testCase.input)
			assert.Equal(t, testCase.want, got)
		})
	}
}

func TestNormalizeRefText(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	got := normalizer.NormalizeRefText("<p>Эталонный\x00 текст</p>\n<br/>")
	assert.Equal(t, "Эталонный текст", got)
}

func TestIntegerToWords(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		number int
		want   string
	}{
		{number: 0, want: "ноль"},
		{number: 1, want: "один"},
		{number: 11, want: "одиннадцать"},
		{number: 21, want: "двадцать один"},
		{number: 40, want: "сорок"},
		{number: 100, want: "сто"},
		{number: 247, want: "двести сорок семь"},
		{number: 1000, want: "одна тысяча"},
		{number: 2000, want: "две тысячи"},
		{number: 5000, want: "пять тысяч"},
		{number: 11000, want: "одиннадцать тысяч"},
		{number: 21000, want: "двадцать одна тысяча"},
		{number: 22300, want: "двадцать две тысячи триста"},
		{number: 999999, want: "девятьсот девяносто девять тысяч девятьсот девяносто девять"},
		{number: 1000000, want: "1000000"},
		{number: -5, want: "-5"},
	}

	for _, testCase := range testCases {
		got := text.IntegerToWords(testCase.number)
		assert.Equal(t, testCase.want, got)
	}
}
