// Package extraction turns free text into standup task records using an LLM.
//
// Extraction is best effort: model or transport failures are logged and
// produce no records, never an error.
package extraction

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/llm"
	"github.com/fyrsmithlabs/standupd/internal/logging"
	"github.com/fyrsmithlabs/standupd/internal/secrets"
	"github.com/fyrsmithlabs/standupd/internal/standup"
)

// Context carries optional facts about the text being extracted.
type Context struct {
	// Author is the display name of the message author.
	Author string
}

// Extractor calls the LLM once per input and parses its answer.
type Extractor struct {
	llm      llm.Completer
	scrubber secrets.Scrubber
	logger   *logging.Logger
}

// New creates an Extractor. A nil scrubber disables secret redaction.
func New(completer llm.Completer, scrubber secrets.Scrubber, logger *logging.Logger) *Extractor {
	if scrubber == nil {
		scrubber = secrets.Nop()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{llm: completer, scrubber: scrubber, logger: logger.Named("extraction")}
}

// Extract returns the task records in a chat message.
func (e *Extractor) Extract(ctx context.Context, text string, ec Context) []standup.Record {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return e.run(ctx, "message", messagePrompt(ec.Author, e.scrub(ctx, text)))
}

// ExtractTranscript returns the task records in a meeting transcript, with each
// speaker resolved against roster. Names that cannot be resolved become
// standup.Unidentified.
func (e *Extractor) ExtractTranscript(ctx context.Context, transcript string, roster []string) []standup.Record {
	if strings.TrimSpace(transcript) == "" {
		return nil
	}
	records := e.run(ctx, "transcript", transcriptPrompt(e.scrub(ctx, transcript)))

	resolved := make(map[string]string)
	for i, rec := range records {
		key := strings.ToLower(rec.Person)
		name, seen := resolved[key]
		if !seen {
			name = e.resolveName(ctx, rec.Person, roster)
			resolved[key] = name
		}
		records[i].Person = name
	}
	return records
}

func (e *Extractor) scrub(ctx context.Context, text string) string {
	res := e.scrubber.Scrub(text)
	if res.Found() {
		e.logger.Warn(ctx, "redacted secrets before extraction", zap.Any("rules", res.ByRule))
	}
	return res.Scrubbed
}

func (e *Extractor) run(ctx context.Context, source, prompt string) []standup.Record {
	raw, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		recordsTotal.WithLabelValues(source, "llm_error").Inc()
		e.logger.Error(ctx, "extraction completion failed", zap.String("source", source), zap.Error(err))
		return nil
	}
	e.logger.Trace(ctx, "extraction raw output", zap.String("source", source), zap.String("raw", raw))

	records, bad, ok := parseRecords(raw)
	if !ok {
		recordsTotal.WithLabelValues(source, "unparseable").Inc()
		e.logger.Warn(ctx, "no JSON array in extraction output", zap.String("source", source), zap.String("raw", raw))
		return nil
	}
	for _, r := range bad {
		recordsTotal.WithLabelValues(source, "quarantined").Inc()
		e.logger.Warn(ctx, "quarantined extracted record",
			zap.String("source", source), zap.String("record", r.raw), zap.String("reason", r.reason))
	}
	recordsTotal.WithLabelValues(source, "accepted").Add(float64(len(records)))
	return records
}

// resolveName maps name onto the roster with one LLM call. Any answer that is
// not a roster entry counts as unresolved.
func (e *Extractor) resolveName(ctx context.Context, name string, roster []string) string {
	if len(roster) == 0 || !standup.IsIdentified(name) {
		return standup.Unidentified
	}
	answer, err := e.llm.Complete(ctx, namePrompt(name, roster))
	if err != nil {
		e.logger.Warn(ctx, "name resolution failed", zap.String("name", name), zap.Error(err))
		return standup.Unidentified
	}
	answer = strings.Trim(strings.TrimSpace(answer), `"'.`)
	for _, known := range roster {
		if strings.EqualFold(known, answer) {
			return known
		}
	}
	return standup.Unidentified
}
