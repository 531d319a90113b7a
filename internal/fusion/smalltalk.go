package fusion

import "strings"

// Short conversational messages skip retrieval entirely; scoring
// greetings against a knowledge base only produces noise.
var smalltalkExact = map[string]bool{
	"hi":           true,
	"hello":        true,
	"hey":          true,
	"yo":           true,
	"thanks":       true,
	"thank you":    true,
	"bye":          true,
	"goodbye":      true,
	"good morning": true,
	"good evening": true,
	"how are you":  true,
	"ok":           true,
	"okay":         true,
}

var smalltalkPrefixes = []string{
	"hi ",
	"hello ",
	"hey ",
	"thanks ",
	"thank you ",
}

func isSmalltalk(question string) bool {
	q := strings.ToLower(strings.TrimSpace(question))
	q = strings.TrimRight(q, "!.?")
	q = strings.TrimSpace(q)
	if q == "" {
		return false
	}
	if smalltalkExact[q] {
		return true
	}
	// Short messages that open conversationally, like "hi there".
	if len(q) <= 24 {
		for _, p := range smalltalkPrefixes {
			if strings.HasPrefix(q, p) {
				return true
			}
		}
	}
	return false
}
