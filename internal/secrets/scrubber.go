// Package secrets redacts credentials from text before it is sent to an
// external LLM provider.
package secrets

import (
	"sort"
)

const redaction = "[REDACTED]"

// Scrubber redacts secrets from content.
type Scrubber interface {
	// Scrub returns content with every finding replaced.
	Scrub(content string) Result
}

// Result reports what Scrub did.
type Result struct {
	Scrubbed string
	// ByRule counts findings per rule ID.
	ByRule map[string]int
}

// Found reports whether any rule matched.
func (r Result) Found() bool {
	return len(r.ByRule) > 0
}

type regexScrubber struct {
	rules []Rule
}

// New returns a Scrubber using rules, or DefaultRules when rules is empty.
func New(rules ...Rule) Scrubber {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &regexScrubber{rules: rules}
}

type span struct{ start, end int }

func (s *regexScrubber) Scrub(content string) Result {
	res := Result{Scrubbed: content, ByRule: map[string]int{}}

	var spans []span
	for _, r := range s.rules {
		for _, m := range r.Pattern.FindAllStringIndex(content, -1) {
			spans = append(spans, span{m[0], m[1]})
			res.ByRule[r.ID]++
		}
	}
	res.Scrubbed = redact(content, spans)
	return res
}

// redact replaces every span of content with the redaction marker.
func redact(content string, spans []span) string {
	if len(spans) == 0 {
		return content
	}

	// Merge overlapping matches so nested rules produce one marker.
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}

	out := make([]byte, 0, len(content))
	prev := 0
	for _, sp := range merged {
		out = append(out, content[prev:sp.start]...)
		out = append(out, redaction...)
		prev = sp.end
	}
	out = append(out, content[prev:]...)
	return string(out)
}

// Nop returns a Scrubber that leaves content untouched.
func Nop() Scrubber { return nopScrubber{} }

type nopScrubber struct{}

func (nopScrubber) Scrub(content string) Result {
	return Result{Scrubbed: content, ByRule: map[string]int{}}
}
