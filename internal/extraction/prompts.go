package extraction

import (
	"fmt"
	"strings"
)

const messageTemplate = `You read standup updates posted in a team chat channel.
Extract every deliverable task mentioned in the message. Skip meetings, greetings and general remarks.

Return ONLY a JSON array. Each element has:
- "name": the person responsible. Use the author unless the message names someone else.
- "task": a short description of the task.
- "status": one of "To Do", "In Progress", "In Review", "Done", or null if the message does not say.

Example:
[{"name": "Nam", "task": "Start building Linear integration", "status": "In Progress"}]

Author: %s
Message:
%s`

const transcriptTemplate = `You read the transcript of a team standup meeting.
Extract every deliverable task a speaker committed to or reported on. Skip small talk.

Return ONLY a JSON array. Each element has:
- "name": the speaker's name as it appears in the transcript.
- "task": a short description of the task.
- "status": one of "To Do", "In Progress", "In Review", "Done", or null if unclear.

Transcript:
%s`

const nameTemplate = `Match a possibly misspelled or partial name from a standup summary to a known teammate.
If no clear match is possible answer "Unidentified" instead of guessing.

Name from summary: %q
Known names:
%s

Answer with the matching name from the list or "Unidentified". Do not explain.`

func messagePrompt(author, text string) string {
	if strings.TrimSpace(author) == "" {
		author = "Unknown"
	}
	return fmt.Sprintf(messageTemplate, author, text)
}

func transcriptPrompt(transcript string) string {
	return fmt.Sprintf(transcriptTemplate, transcript)
}

func namePrompt(name string, roster []string) string {
	return fmt.Sprintf(nameTemplate, name, "- "+strings.Join(roster, "\n- "))
}
