package resolve

import "fmt"

// Confidence is an ordered trust tier: Red < Yellow < Green.
type Confidence uint8

const (
	Red Confidence = iota + 1
	Yellow
	Green
)

func (c Confidence) String() string {
	switch c {
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	case Green:
		return "green"
	default:
		return fmt.Sprintf("confidence(%d)", uint8(c))
	}
}

// ParseConfidence parses the text form of a confidence tier.
func ParseConfidence(s string) (Confidence, error) {
	switch s {
	case "red":
		return Red, nil
	case "yellow":
		return Yellow, nil
	case "green":
		return Green, nil
	}
	return 0, fmt.Errorf("unknown confidence %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Confidence) MarshalText() ([]byte, error) {
	if c < Red || c > Green {
		return nil, fmt.Errorf("invalid confidence %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Confidence) UnmarshalText(b []byte) error {
	v, err := ParseConfidence(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Weaker returns the lower of two confidences.
func Weaker(a, b Confidence) Confidence {
	if b < a {
		return b
	}
	return a
}

// Method records how an endpoint coordinate was chosen.
type Method string

const (
	MethodSingle      Method = "single"     // the only candidate, or no reference to test against
	MethodFiltered    Method = "filtered"   // the only candidate within the distance budget
	MethodRanked      Method = "ranked"     // best of several within the budget
	MethodClosest     Method = "closest"    // nothing within budget; nearest to it
	MethodImportance  Method = "importance" // no reference; most important candidate
	MethodInherited   Method = "inherited"  // previous leg's destination kept for continuity
	MethodPreviousLeg Method = "previous-leg"
	MethodCentroid    Method = "centroid"
	MethodProjected   Method = "projected"
	MethodUnknown     Method = "unknown"
)
