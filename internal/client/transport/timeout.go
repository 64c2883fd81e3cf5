package transport

import "strings"

// TimeoutClass selects the per-attempt deadline.
type TimeoutClass int

const (
	// TimeoutAuto picks the class from the endpoint path.
	TimeoutAuto TimeoutClass = iota
	TimeoutShort
	TimeoutLong
)

func (c TimeoutClass) String() string {
	switch c {
	case TimeoutShort:
		return "short"
	case TimeoutLong:
		return "long"
	default:
		return "auto"
	}
}

// Question answering and comparison are AI-backed and much slower.
var longEndpointMarkers = []string{"/ask", "/question", "/compare"}

// ClassFor returns TimeoutLong for endpoints touching question answering or
// comparison and TimeoutShort for everything else.
func ClassFor(endpoint string) TimeoutClass {
	e := strings.ToLower(endpoint)
	for _, m := range longEndpointMarkers {
		if strings.Contains(e, m) {
			return TimeoutLong
		}
	}
	return TimeoutShort
}

func (c TimeoutClass) resolve(endpoint string) TimeoutClass {
	if c == TimeoutAuto {
		return ClassFor(endpoint)
	}
	return c
}
