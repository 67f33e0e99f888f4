package valueparse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the classification of a single raw cell value.
type Kind int

const (
	KindText Kind = iota
	KindBoolean
	KindCurrency
	KindPercentage
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindCurrency:
		return "currency"
	case KindPercentage:
		return "percentage"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "text"
	}
}

// Numeric reports whether the kind counts toward the numeric tally.
func (k Kind) Numeric() bool {
	return k == KindCurrency || k == KindPercentage || k == KindNumber
}

var (
	booleanPattern    = regexp.MustCompile(`(?i)^(true|false|yes|no|y|n|1|0|on|off)$`)
	currencyPattern   = regexp.MustCompile(`^[$€£¥]?\s*[\d,]+\.?\d{0,2}$|^[\d,]+\.?\d{0,2}\s*[$€£¥]?$`)
	percentagePattern = regexp.MustCompile(`^[\d,]+\.?\d*\s*%?$`)

	// decoration stripped before parsing an amount
	numberDecoration = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", "%", "")
)

// IsBoolean matches true/false, yes/no, y/n, 1/0 and on/off in any case.
func IsBoolean(s string) bool { return booleanPattern.MatchString(strings.TrimSpace(s)) }

// IsCurrency matches an amount with an optional leading or trailing currency
// symbol, optional thousands separators and at most two decimal digits.
func IsCurrency(s string) bool { return currencyPattern.MatchString(strings.TrimSpace(s)) }

// IsPercentage matches a numeral optionally followed by '%'.
func IsPercentage(s string) bool { return percentagePattern.MatchString(strings.TrimSpace(s)) }

// IsNumericLiteral reports whether s is a plain floating point literal.
func IsNumericLiteral(s string) bool {
	_, ok := parseLiteral(strings.TrimSpace(s))
	return ok
}

// CleanNumber strips currency symbols, thousands separators, percent signs
// and whitespace, then parses what is left as a float.
func CleanNumber(s string) (float64, bool) {
	raw := numberDecoration.Replace(s)
	raw = strings.Join(strings.Fields(raw), "")
	return parseLiteral(raw)
}

func parseLiteral(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	// ParseFloat accepts "inf", "nan" and hex floats; none of those are spreadsheet numbers
	lower := strings.ToLower(s)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.Contains(lower, "0x") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Classify assigns a Kind to a raw value. Checks run in priority order:
// boolean, currency, percentage, plain number, date.
func Classify(raw string) Kind {
	s := strings.TrimSpace(raw)
	if s == "" {
		return KindText
	}
	if IsBoolean(s) {
		return KindBoolean
	}
	if IsCurrency(s) {
		if _, ok := CleanNumber(s); ok {
			return KindCurrency
		}
	}
	if IsPercentage(s) {
		if _, ok := CleanNumber(s); ok {
			return KindPercentage
		}
	}
	if IsNumericLiteral(s) {
		return KindNumber
	}
	if IsDate(s) {
		return KindDate
	}
	return KindText
}
