package valueparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPriority(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"true", KindBoolean},
		{"No", KindBoolean},
		{"1", KindBoolean},
		{"$1,234.50", KindCurrency},
		{"1234.5", KindCurrency},
		{"1,000 €", KindCurrency},
		{"12.345%", KindPercentage},
		{"-42.7", KindNumber},
		{"1e6", KindNumber},
		{"2023-01-15", KindDate},
		{"Mar 5, 2021", KindDate},
		{"hello", KindText},
		{"NaN", KindText},
		{"", KindText},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}

func TestTypePredicates(t *testing.T) {
	tests := []struct {
		in                               string
		boolean, currency, pct, literal bool
	}{
		{" Yes ", true, false, false, false},
		{"off", true, false, false, false},
		{"1", true, true, true, true},
		{"$1,234.50", false, true, false, false},
		{"99 €", false, true, false, false},
		{"12.345%", false, false, true, false},
		{"12.345", false, false, true, true},
		{"-42.7", false, false, false, true},
		{"1e6", false, false, false, true},
		{"Inf", false, false, false, false},
		{"abc", false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.boolean, IsBoolean(tt.in), "IsBoolean")
			assert.Equal(t, tt.currency, IsCurrency(tt.in), "IsCurrency")
			assert.Equal(t, tt.pct, IsPercentage(tt.in), "IsPercentage")
			assert.Equal(t, tt.literal, IsNumericLiteral(tt.in), "IsNumericLiteral")
		})
	}
}

func TestCleanNumberCurrencyAndPlainAgree(t *testing.T) {
	a, ok := CleanNumber("$1,234.50")
	require.True(t, ok)
	b, ok := CleanNumber("1234.5")
	require.True(t, ok)
	assert.Equal(t, 1234.5, a)
	assert.Equal(t, a, b)

	p, ok := CleanNumber(" 45 % ")
	require.True(t, ok)
	assert.Equal(t, 45.0, p)

	_, ok = CleanNumber("N/A")
	assert.False(t, ok)
}

func TestIsDatePatterns(t *testing.T) {
	valid := []string{
		"2023-01-01", "12/31/2023", "31-12-2023", "1/2/23", "2023/1/2",
		"January 5, 2021", "Feb 28 2020", "5-Mar-2021", "2021-03-05T10:00:00Z",
	}
	for _, s := range valid {
		assert.Truef(t, IsDate(s), "expected %q to be a date", s)
	}
}

func TestIsDateRejectsPureDigitsAndImplausibleYears(t *testing.T) {
	assert.False(t, IsDate("20230101"))
	assert.False(t, IsDate("20231"))
	assert.False(t, IsDate("2023"))
	assert.False(t, IsDate("1850-01-02T00:00:00Z"))
	assert.False(t, IsDate("2300-01-02T00:00:00Z"))
	assert.False(t, IsDate("not a date"))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2023-04-05", time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC)},
		{"04/05/2023", time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC)},
		{"05-04-2023", time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC)},
		{"25/12/99", time.Date(1999, 12, 25, 0, 0, 0, 0, time.UTC)},
		{"2023/4/5", time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC)},
		{"April 5, 2023", time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC)},
		{"5-Apr-2023", time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		require.Truef(t, ok, "parse %q", tt.in)
		assert.Truef(t, tt.want.Equal(got), "%q: got %v want %v", tt.in, got, tt.want)
	}

	// matches a pattern but is not a real day
	assert.True(t, IsDate("02/30/2023"))
	_, ok := ParseDate("02/30/2023")
	assert.False(t, ok)
}

func TestResolveType(t *testing.T) {
	t.Run("numeric", func(t *testing.T) {
		vals := []string{"$10", "20", "30.5", "1,200", "55%", "7", "8", "9", "10.25", "11"}
		r := ResolveType(vals, DefaultSampleSize)
		assert.Equal(t, TypeNumber, r.Type)
		assert.True(t, r.Numeric)
		assert.InDelta(t, 1.0, r.Confidence, 1e-9)
	})
	t.Run("date", func(t *testing.T) {
		vals := []string{"2023-01-01", "2023-01-02", "2023-01-03", "2023-01-04", "2023-01-05"}
		r := ResolveType(vals, DefaultSampleSize)
		assert.Equal(t, TypeDate, r.Type)
		assert.True(t, r.Date)
	})
	t.Run("mixed falls back to string", func(t *testing.T) {
		vals := []string{"10", "20", "x", "y", "2023-01-01"}
		r := ResolveType(vals, DefaultSampleSize)
		assert.Equal(t, TypeString, r.Type)
		assert.InDelta(t, 1-0.4, r.Confidence, 1e-9)
	})
	t.Run("booleans stay in the denominator", func(t *testing.T) {
		vals := []string{"yes", "no", "yes", "no", "5"}
		r := ResolveType(vals, DefaultSampleSize)
		assert.Equal(t, TypeString, r.Type)
		assert.InDelta(t, 0.8, r.Confidence, 1e-9)
	})
	t.Run("empty", func(t *testing.T) {
		r := ResolveType(nil, DefaultSampleSize)
		assert.Equal(t, TypeString, r.Type)
		assert.Zero(t, r.Confidence)
	})
	t.Run("sample prefix only", func(t *testing.T) {
		vals := []string{"1.5", "2.5", "3.5", "x", "y", "z"}
		assert.Equal(t, TypeString, ResolveType(vals, 6).Type)
		assert.Equal(t, TypeNumber, ResolveType(vals, 3).Type)
	})
}
