package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/bus"
	"github.com/fyrsmithlabs/standupd/internal/logging"
	"github.com/fyrsmithlabs/standupd/internal/standup"
	"github.com/fyrsmithlabs/standupd/internal/transcripts"
	"github.com/fyrsmithlabs/standupd/internal/warehouse"
)

// TranscriptSource lists, reads and archives transcript documents.
type TranscriptSource interface {
	List(ctx context.Context) ([]transcripts.Doc, error)
	Text(ctx context.Context, docID string) (string, error)
	MarkProcessed(ctx context.Context, docID string) error
}

// TranscriptExtractor pulls task records out of a transcript.
type TranscriptExtractor interface {
	ExtractTranscript(ctx context.Context, transcript string, roster []string) []standup.Record
}

// Roster supplies the known teammate names.
type Roster interface {
	Names() []string
}

// Publisher puts records on the task bus.
type Publisher interface {
	PublishAll(ctx context.Context, source, sourceID string, recs []standup.Record) error
}

// IssueLister reads the tracker's issues.
type IssueLister interface {
	ListIssues(ctx context.Context) ([]standup.Issue, error)
}

// MetricsSink stores metric rows.
type MetricsSink interface {
	AppendMetrics(ctx context.Context, rows []warehouse.MetricRow) error
}

// Activities holds the collaborators activities run against. Register a
// populated value with the worker; workflows reference methods on a nil
// *Activities.
type Activities struct {
	Source    TranscriptSource
	Extractor TranscriptExtractor
	Roster    Roster
	Publisher Publisher
	Issues    IssueLister
	Metrics   MetricsSink
	Logger    *logging.Logger
}

func (a *Activities) logger() *logging.Logger {
	if a.Logger == nil {
		return logging.NewNop()
	}
	return a.Logger
}

func observe(ctx context.Context, name string, start time.Time, err error) {
	recordActivity(ctx, name, time.Since(start), err)
}

// ListTranscriptsActivity returns the documents waiting in the folder.
func (a *Activities) ListTranscriptsActivity(ctx context.Context) (docs []transcripts.Doc, err error) {
	defer func(start time.Time) { observe(ctx, "list_transcripts", start, err) }(time.Now())
	return a.Source.List(ctx)
}

// ExtractTranscriptActivity reads one transcript and extracts its tasks.
func (a *Activities) ExtractTranscriptActivity(ctx context.Context, doc transcripts.Doc) (res ExtractTranscriptResult, err error) {
	defer func(start time.Time) { observe(ctx, "extract_transcript", start, err) }(time.Now())

	text, err := a.Source.Text(ctx, doc.ID)
	if err != nil {
		return res, err
	}
	if text == "" {
		a.logger().Info(ctx, "document has no transcript", zap.String("doc", doc.Name))
		return res, nil
	}
	res.HasTranscript = true

	var roster []string
	if a.Roster != nil {
		roster = a.Roster.Names()
	}
	res.Records = a.Extractor.ExtractTranscript(ctx, text, roster)
	a.logger().Info(ctx, "transcript extracted", zap.String("doc", doc.Name), zap.Int("tasks", len(res.Records)))
	return res, nil
}

// PublishTranscriptTasksActivity puts a document's extracted records on the
// bus. Task IDs depend only on the document and position, so a retry is
// dropped by the stream's duplicate window.
func (a *Activities) PublishTranscriptTasksActivity(ctx context.Context, doc transcripts.Doc, recs []standup.Record) (err error) {
	defer func(start time.Time) { observe(ctx, "publish_tasks", start, err) }(time.Now())
	if err := a.Publisher.PublishAll(ctx, bus.SourceTranscript, doc.ID, recs); err != nil {
		return fmt.Errorf("publishing tasks from %s: %w", doc.Name, err)
	}
	return nil
}

// ArchiveTranscriptActivity moves a document to the processed folder.
func (a *Activities) ArchiveTranscriptActivity(ctx context.Context, docID string) (err error) {
	defer func(start time.Time) { observe(ctx, "archive_transcript", start, err) }(time.Now())
	return a.Source.MarkProcessed(ctx, docID)
}

// PercentDoneActivity computes the share of issues in the Done state.
func (a *Activities) PercentDoneActivity(ctx context.Context) (pct float64, err error) {
	defer func(start time.Time) { observe(ctx, "percent_done", start, err) }(time.Now())
	issues, err := a.Issues.ListIssues(ctx)
	if err != nil {
		return 0, err
	}
	return standup.PercentDone(issues), nil
}

// AppendMetricActivity writes one metric row.
func (a *Activities) AppendMetricActivity(ctx context.Context, row warehouse.MetricRow) (err error) {
	defer func(start time.Time) { observe(ctx, "append_metric", start, err) }(time.Now())
	if a.Metrics == nil {
		return temporal.NewNonRetryableApplicationError("no metrics warehouse configured", "NoWarehouse", nil)
	}
	return a.Metrics.AppendMetrics(ctx, []warehouse.MetricRow{row})
}
