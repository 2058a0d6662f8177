package text

import (
	"strconv"
	"strings"
)

// Number system bases used by the converter.
const (
	numberBaseTen      = 10
	numberBaseTwenty   = 20
	numberBaseHundred  = 100
	numberBaseThousand = 1000
)

// numberConverter expands integers into Russian words. Thousands take the
// feminine forms of one and two and a case-dependent noun.
type numberConverter struct {
	ones         []string
	onesFeminine []string
	teens        []string
	tens         []string
	hundreds     []string
}

func newNumberConverter() *numberConverter {
	return &numberConverter{
		ones: []string{
			"", "один", "два", "три", "четыре", "пять",
			"шесть", "семь", "восемь", "девять",
		},
		onesFeminine: []string{
			"", "одна", "две", "три", "четыре", "пять",
			"шесть", "семь", "восемь", "девять",
		},
		teens: []string{
			"десять", "одиннадцать", "двенадцать", "тринадцать",
			"четырнадцать", "пятнадцать", "шестнадцать",
			"семнадцать", "восемнадцать", "девятнадцать",
		},
		tens: []string{
			"", "", "двадцать", "тридцать", "сорок", "пятьдесят",
			"шестьдесят", "семьдесят", "восемьдесят", "девяносто",
		},
		hundreds: []string{
			"", "сто", "двести", "триста", "четыреста", "пятьсот",
			"шестьсот", "семьсот", "восемьсот", "девятьсот",
		},
	}
}

func (nc *numberConverter) convertUnderThousand(num int, feminine bool) []string {
	var parts []string

	if num >= numberBaseHundred {
		parts = append(parts, nc.hundreds[num/numberBaseHundred])
		num %= numberBaseHundred
	}

	switch {
	case num >= numberBaseTwenty:
		parts = append(parts, nc.tens[num/numberBaseTen])

		num %= numberBaseTen
		if num > 0 {
			parts = append(parts, nc.unit(num, feminine))
		}
	case num >= numberBaseTen:
		parts = append(parts, nc.teens[num-numberBaseTen])
	case num > 0:
		parts = append(parts, nc.unit(num, feminine))
	}

	return parts
}

func (nc *numberConverter) unit(num int, feminine bool) string {
	if feminine {
		return nc.onesFeminine[num]
	}

	return nc.ones[num]
}

// thousandNoun returns the grammatical form of "тысяча" for the count.
func thousandNoun(count int) string {
	lastTwo := count % numberBaseHundred
	if lastTwo >= 11 && lastTwo <= 14 {
		return "тысяч"
	}

	switch count % numberBaseTen {
	case 1:
		return "тысяча"
	case 2, 3, 4:
		return "тысячи"
	default:
		return "тысяч"
	}
}

// IntegerToWords converts an integer into its Russian word representation.
// Numbers outside [0, MaxNumberForWords] are returned as digits.
func IntegerToWords(number int) string {
	if number < 0 || number > MaxNumberForWords {
		return strconv.Itoa(number)
	}

	if number == 0 {
		return "ноль"
	}

	converter := newNumberConverter()

	var parts []string

	thousands := number / numberBaseThousand
	if thousands > 0 {
		parts = append(parts, converter.convertUnderThousand(thousands, true)...)
		parts = append(parts, thousandNoun(thousands))
	}

	remainder := number % numberBaseThousand
	if remainder > 0 {
		parts = append(parts, converter.convertUnderThousand(remainder, false)...)
	}

	return strings.Join(parts, " ")
}
