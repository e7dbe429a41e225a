// Package transcripts reads meeting transcripts from Google Docs in a Drive
// folder and archives them once processed.
package transcripts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/fyrsmithlabs/standupd/internal/config"
	"github.com/fyrsmithlabs/standupd/internal/logging"
)

// transcriptTab is the tab Meet writes the transcript to; tab 0 holds notes.
const transcriptTab = 1

var scopes = []string{drive.DriveScope, docs.DocumentsReadonlyScope}

// Doc identifies one transcript document.
type Doc struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Source lists and archives transcript documents.
type Source struct {
	drive       *drive.Service
	docs        *docs.Service
	folderID    string
	processedID string
	logger      *logging.Logger
}

// Credentials loads Google credentials from file, or the application
// default credentials when file is empty.
func Credentials(ctx context.Context, file string) (*google.Credentials, error) {
	if file == "" {
		creds, err := google.FindDefaultCredentials(ctx, scopes...)
		if err != nil {
			return nil, fmt.Errorf("finding default google credentials: %w", err)
		}
		return creds, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading google credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}
	return creds, nil
}

// New creates a Source. Without opts, credentials come from cfg.
func New(ctx context.Context, cfg config.TranscriptsConfig, logger *logging.Logger, opts ...option.ClientOption) (*Source, error) {
	if cfg.FolderID == "" || cfg.ProcessedFolderID == "" {
		return nil, errors.New("transcript folder and processed folder are required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if len(opts) == 0 {
		creds, err := Credentials(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		opts = []option.ClientOption{option.WithCredentials(creds)}
	}

	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive client: %w", err)
	}
	docsSvc, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating docs client: %w", err)
	}
	return &Source{
		drive:       driveSvc,
		docs:        docsSvc,
		folderID:    cfg.FolderID,
		processedID: cfg.ProcessedFolderID,
		logger:      logger.Named("transcripts"),
	}, nil
}

// List returns the documents in the transcript folder. Text is not
// fetched; use Text for that.
func (s *Source) List(ctx context.Context) ([]Doc, error) {
	q := fmt.Sprintf("'%s' in parents and mimeType='application/vnd.google-apps.document' and trashed=false", s.folderID)

	var out []Doc
	err := s.drive.Files.List().Q(q).Fields("nextPageToken, files(id, name)").Pages(ctx, func(fl *drive.FileList) error {
		for _, f := range fl.Files {
			out = append(out, Doc{ID: f.Id, Name: f.Name})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing transcripts: %w", err)
	}
	s.logger.Debug(ctx, "listed transcripts", zap.Int("count", len(out)))
	return out, nil
}

// Text fetches a document and returns its cleaned transcript tab, or "" when
// the document has none.
func (s *Source) Text(ctx context.Context, docID string) (string, error) {
	doc, err := s.docs.Documents.Get(docID).IncludeTabsContent(true).Fields("title,tabs").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("fetching document %s: %w", docID, err)
	}
	if len(doc.Tabs) <= transcriptTab || doc.Tabs[transcriptTab].DocumentTab == nil {
		return "", nil
	}
	return CleanTranscript(textRuns(doc.Tabs[transcriptTab].DocumentTab.Body)), nil
}

// MarkProcessed moves a document from its current folders into the
// processed folder so it is not read again.
func (s *Source) MarkProcessed(ctx context.Context, docID string) error {
	f, err := s.drive.Files.Get(docID).Fields("parents").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading parents of %s: %w", docID, err)
	}
	_, err = s.drive.Files.Update(docID, &drive.File{}).
		AddParents(s.processedID).
		RemoveParents(strings.Join(f.Parents, ",")).
		Fields("id, parents").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("moving %s to processed folder: %w", docID, err)
	}
	s.logger.Info(ctx, "transcript archived", zap.String("doc", docID))
	return nil
}
