package transcripts

import (
	"regexp"
	"strings"

	"google.golang.org/api/docs/v1"
)

var (
	invisible      = regexp.MustCompile(`[\x00-\x1F\x{200b}\x{feff}\x{a0}\x{2028}\x{2029}\x{200e}\x{200f}\x{202a}-\x{202e}]`)
	clockTime      = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\s?(AM|PM)?\b`)
	bracketedStamp = regexp.MustCompile(`\[\d{2}:\d{2}(?::\d{2})?\]`)
)

// CleanTranscript turns the text runs of a transcript into plain lines.
// Timestamps, the title header and the "editable transcript" banner are
// dropped and everything from "transcription ended" on is ignored.
func CleanTranscript(runs []string) string {
	lines := make([]string, 0, len(runs))
	for _, run := range runs {
		content := invisible.ReplaceAllString(strings.TrimSpace(run), "")
		if content == "" {
			continue
		}
		lower := strings.ToLower(content)
		if strings.HasSuffix(lower, "- transcript") || strings.Contains(lower, "editable transcript") {
			continue
		}
		if strings.Contains(lower, "transcription ended") {
			break
		}
		content = bracketedStamp.ReplaceAllString(content, "")
		content = clockTime.ReplaceAllString(content, "")
		if content = strings.Join(strings.Fields(content), " "); content != "" {
			lines = append(lines, content)
		}
	}
	return strings.Join(lines, "\n")
}

// textRuns collects paragraph text runs from body in document order.
func textRuns(body *docs.Body) []string {
	if body == nil {
		return nil
	}
	var runs []string
	for _, el := range body.Content {
		if el.Paragraph == nil {
			continue
		}
		for _, pe := range el.Paragraph.Elements {
			if pe.TextRun != nil {
				runs = append(runs, pe.TextRun.Content)
			}
		}
	}
	return runs
}
