package valueparse

// Type is the resolved column type.
type Type string

const (
	TypeNumber Type = "number"
	TypeDate   Type = "date"
	TypeString Type = "string"
)

const (
	// DefaultSampleSize is the prefix of present values inspected when
	// resolving a column type. Import-time detection and the analyzer share it.
	DefaultSampleSize = 100
	// TypeConfidenceThreshold is the fraction of the sample that must agree
	// before a column is typed number or date.
	TypeConfidenceThreshold = 0.8
)

// Resolution is the outcome of typing one column.
type Resolution struct {
	Type       Type
	Numeric    bool
	Date       bool
	String     bool
	Confidence float64
	// fractions over the sample, kept for previews
	NumericFraction float64
	DateFraction    float64
}

// ResolveType samples up to sampleSize leading values and tallies numeric and
// date matches. Booleans count toward neither tally but stay in the denominator.
func ResolveType(values []string, sampleSize int) Resolution {
	if len(values) == 0 {
		return Resolution{Type: TypeString, String: true}
	}
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	n := min(len(values), sampleSize)
	var numbers, dates int
	for _, v := range values[:n] {
		k := Classify(v)
		switch {
		case k.Numeric():
			numbers++
		case k == KindDate:
			dates++
		}
	}
	numFrac := float64(numbers) / float64(n)
	dateFrac := float64(dates) / float64(n)
	res := Resolution{NumericFraction: numFrac, DateFraction: dateFrac}
	switch {
	case numFrac > TypeConfidenceThreshold:
		res.Type, res.Numeric, res.Confidence = TypeNumber, true, numFrac
	case dateFrac > TypeConfidenceThreshold:
		res.Type, res.Date, res.Confidence = TypeDate, true, dateFrac
	default:
		res.Type, res.String, res.Confidence = TypeString, true, 1-max(numFrac, dateFrac)
	}
	return res
}
