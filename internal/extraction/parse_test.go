package extraction

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/standupd/internal/standup"
)

func TestParseRecords(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   []standup.Record
		wantOK bool
	}{
		{
			name:   "bare array",
			raw:    `[{"name":"Nam","task":"Build X","status":"In Progress"}]`,
			want:   []standup.Record{{Person: "Nam", Task: "Build X", Status: "In Progress"}},
			wantOK: true,
		},
		{
			name:   "fenced with prose",
			raw:    "Here are the tasks:\n```json\n[\n  {\"name\": \"Ana\", \"task\": \"Fix login\", \"status\": null}\n]\n```\nLet me know!",
			want:   []standup.Record{{Person: "Ana", Task: "Fix login"}},
			wantOK: true,
		},
		{
			name:   "missing name becomes unidentified",
			raw:    `[{"task":"Write docs","status":"Done"}]`,
			want:   []standup.Record{{Person: standup.Unidentified, Task: "Write docs", Status: "Done"}},
			wantOK: true,
		},
		{
			name:   "invalid record quarantined",
			raw:    `[{"name":"Nam","task":""},{"name":"Ana","task":"Ship it","status":"Done"},{"name":"Bo","task":42}]`,
			want:   []standup.Record{{Person: "Ana", Task: "Ship it", Status: "Done"}},
			wantOK: true,
		},
		{
			name:   "skips bracketed prose before real array",
			raw:    `Note [{not json}] then [{"name":"Nam","task":"Build X"}]`,
			want:   []standup.Record{{Person: "Nam", Task: "Build X"}},
			wantOK: true,
		},
		{
			name:   "first of two arrays",
			raw:    `[{"name":"A","task":"one"}] and also [{"name":"B","task":"two"}]`,
			want:   []standup.Record{{Person: "A", Task: "one"}},
			wantOK: true,
		},
		{
			name:   "no array",
			raw:    "I could not find any tasks in that message.",
			wantOK: false,
		},
		{
			name:   "truncated array",
			raw:    `[{"name":"Nam","task":"Build X"`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRecords(tt.raw)
			require.Equal(t, tt.wantOK, ok)
			if diff := cmp.Diff(tt.want, got); tt.wantOK && diff != "" {
				t.Errorf("ParseRecords() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRecords_ReportsRejects(t *testing.T) {
	_, bad, ok := parseRecords(`[{"name":"Nam","task":"  "}]`)
	require.True(t, ok)
	require.Len(t, bad, 1)
	assert.Contains(t, bad[0].reason, "no task")
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "SELECT 1", StripFences("```sql\nSELECT 1\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```json {\"a\":1} ```"))
	assert.Equal(t, "plain", StripFences("  plain  "))
}

func TestParseObject(t *testing.T) {
	var got struct {
		Intent string `json:"intent"`
		Title  string `json:"title"`
	}
	ok := ParseObject("Sure!\n```json\n{\"intent\": \"set_status\", \"title\": \"Build X\"}\n```", &got)
	require.True(t, ok)
	assert.Equal(t, "set_status", got.Intent)
	assert.Equal(t, "Build X", got.Title)

	assert.False(t, ParseObject("no json here", &got))
}
