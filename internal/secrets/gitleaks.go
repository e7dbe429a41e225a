package secrets

import (
	"strings"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// WithGitleaks returns a Scrubber that redacts everything the gitleaks
// default ruleset finds, then hands the result to next.
//
// If the gitleaks detector cannot be built, only next runs.
func WithGitleaks(next Scrubber) Scrubber {
	if next == nil {
		next = Nop()
	}
	return &gitleaksScrubber{next: next}
}

type gitleaksScrubber struct {
	next Scrubber
}

func (g *gitleaksScrubber) Scrub(content string) Result {
	byRule := map[string]int{}
	var spans []span

	// Detectors keep every finding they report, so one is built per call.
	if detector, err := detect.NewDetectorDefaultConfig(); err == nil {
		for _, f := range detector.DetectString(content) {
			if f.Secret == "" {
				continue
			}
			found := false
			for off := 0; ; {
				i := strings.Index(content[off:], f.Secret)
				if i < 0 {
					break
				}
				start := off + i
				spans = append(spans, span{start, start + len(f.Secret)})
				off = start + len(f.Secret)
				found = true
			}
			if found {
				byRule[f.RuleID]++
			}
		}
	}

	res := g.next.Scrub(redact(content, spans))
	for id, n := range byRule {
		res.ByRule[id] += n
	}
	return res
}
