package query

import "fmt"

// InvalidQuery is the answer the model gives when a metrics question cannot
// be expressed in SQL.
const InvalidQuery = "INVALID_QUERY"

const classifyTemplate = `You route questions and commands about a Linear workspace.
Pick exactly one intent:
- "list_issues": the user wants to see issues.
- "set_priority": the user wants to change an issue's priority. Map words to numbers: 0 = No priority, 1 = Urgent, 2 = High, 3 = Medium, 4 = Low.
- "set_status": the user wants to move an issue to a status such as "In Progress", "In Review" or "Done".
- "metrics": any other question about task counts, statuses, owners or completion times.

Respond ONLY with a JSON object: {"intent": "...", "title": "...", "status": "...", "priority": 0}
Leave out keys that do not apply.

Message:
%q`

const sqlTemplate = `You convert questions into one read-only SQL query.
Available tables in the %[1]s dataset:

Table %[1]s.linear_tasks: ingestion_timestamp TIMESTAMP, completed_at TIMESTAMP, created_at TIMESTAMP, status STRING, issue_title STRING, owner_name STRING, issue_id STRING
Table %[1]s.linear_tasks_view: ingestion_timestamp TIMESTAMP, owner_name STRING, status STRING, issue_count INTEGER
Table %[1]s.avg_done_tasks_view: ingestion_timestamp TIMESTAMP, owner_name STRING, avg_lead_time FLOAT, total_issues_in_avg INTEGER
Table %[1]s.%[2]s: time TIMESTAMP, metric_name STRING, metric_value FLOAT

Rules:
1. Output only the SQL query, no explanation and no markdown.
2. Always fully qualify tables as %[1]s.<table>.
3. Use avg_done_tasks_view for time spent on tasks, linear_tasks_view for counts by owner or status, and linear_tasks for everything else.
4. For questions about the current state, filter on the latest ingestion_timestamp.
5. If the question cannot be answered from these tables, output %[3]s.

Question:
%[4]q`

func classifyPrompt(question string) string {
	return fmt.Sprintf(classifyTemplate, question)
}

func sqlPrompt(dataset, metricsTable, question string) string {
	return fmt.Sprintf(sqlTemplate, dataset, metricsTable, InvalidQuery, question)
}
