package extraction

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/standupd/internal/standup"
)

var (
	fencePattern      = regexp.MustCompile("```[A-Za-z]*")
	arrayStartPattern = regexp.MustCompile(`\[\s*\{`)
)

// StripFences removes markdown code fence markers (```json, ```sql, ```).
func StripFences(text string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))
}

// rejected is a record that failed validation.
type rejected struct {
	raw    string
	reason string
}

// ParseRecords extracts task records from model output.
//
// Fences are stripped, then the first well-formed JSON array of objects is
// decoded. Records that fail to decode or validate are dropped. ok is false
// when no array could be decoded at all.
func ParseRecords(raw string) (records []standup.Record, ok bool) {
	records, _, ok = parseRecords(raw)
	return records, ok
}

func parseRecords(raw string) ([]standup.Record, []rejected, bool) {
	items, ok := firstArray(StripFences(raw))
	if !ok {
		return nil, nil, false
	}

	records := make([]standup.Record, 0, len(items))
	var bad []rejected
	for _, item := range items {
		var rec standup.Record
		if err := json.Unmarshal(item, &rec); err != nil {
			bad = append(bad, rejected{raw: string(item), reason: err.Error()})
			continue
		}
		rec.Person = strings.TrimSpace(rec.Person)
		rec.Task = strings.TrimSpace(rec.Task)
		rec.Status = strings.TrimSpace(rec.Status)
		if err := rec.Validate(); err != nil {
			bad = append(bad, rejected{raw: string(item), reason: err.Error()})
			continue
		}
		if !standup.IsIdentified(rec.Person) {
			rec.Person = standup.Unidentified
		}
		records = append(records, rec)
	}
	return records, bad, true
}

// firstArray decodes the first position in text where a JSON array of objects
// parses cleanly. Trailing prose after the array is ignored.
func firstArray(text string) ([]json.RawMessage, bool) {
	for _, loc := range arrayStartPattern.FindAllStringIndex(text, -1) {
		dec := json.NewDecoder(strings.NewReader(text[loc[0]:]))
		var items []json.RawMessage
		if err := dec.Decode(&items); err == nil {
			return items, true
		}
	}
	return nil, false
}

// ParseObject decodes the first JSON object found in model output into v.
// It reports false when no object decodes.
func ParseObject(raw string, v interface{}) bool {
	text := StripFences(raw)
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(v); err == nil {
			return true
		}
	}
	return false
}
