package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"salary-dashboard/internal/config"
	apperrors "salary-dashboard/internal/errors"
	"salary-dashboard/internal/models"
	"salary-dashboard/internal/observability"
)

const maxRemoteBytes = 256 << 20

// Loader fetches the salary table from the remote URL and falls back to the
// local copy. A successful remote fetch refreshes the local copy.
type Loader struct {
	remoteURL    string
	localPath    string
	fetchTimeout time.Duration
	columns      config.ColumnsConfig
	client       *http.Client
	logger       *slog.Logger

	mu        sync.Mutex
	lastWrite time.Time
}

type LoaderOption func(*Loader)

// WithHTTPClient replaces the client used for the remote fetch.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) { l.client = client }
}

func NewLoader(data config.DataConfig, columns config.ColumnsConfig, logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{
		remoteURL:    data.RemoteURL,
		localPath:    data.LocalPath,
		fetchTimeout: data.FetchTimeout,
		columns:      columns,
		client:       &http.Client{Timeout: data.FetchTimeout},
		logger:       logger.With("component", "dataset"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) Key() Key {
	return Key{RemoteURL: l.remoteURL, LocalPath: l.localPath}
}

func (l *Loader) LocalPath() string {
	return l.localPath
}

// Load runs the remote-then-local fallback. It fails with DATA_UNAVAILABLE
// when neither source yields a table, or SCHEMA_MISMATCH when the local copy
// was readable but lacks required columns.
func (l *Loader) Load(ctx context.Context) (*models.Dataset, error) {
	ctx, span := observability.StartSpan(ctx, "dataset.load")
	defer span.FinishAndLog(ctx, l.logger)

	var remoteErr error
	if l.remoteURL == "" {
		remoteErr = errors.New("no remote URL configured")
	} else {
		ds, body, err := l.loadRemote(ctx)
		if err == nil {
			if werr := l.writeLocalCopy(body); werr != nil {
				l.logger.Warn("failed to update local copy", "path", l.localPath, "error", werr)
			}
			span.SetTag("source", string(models.SourceRemote))
			l.logger.Info("salary data loaded", "source", ds.Source, "records", ds.Len(), "skipped", ds.SkippedRows)
			return ds, nil
		}
		remoteErr = err
		l.logger.Warn("remote salary data unavailable, falling back to local copy",
			"url", l.remoteURL,
			"error", err,
		)
	}

	ds, localErr := l.LoadLocal(ctx)
	if localErr == nil {
		span.SetTag("source", string(models.SourceLocal))
		l.logger.Info("salary data loaded", "source", ds.Source, "records", ds.Len(), "skipped", ds.SkippedRows)
		return ds, nil
	}

	cause := errors.Join(remoteErr, localErr)
	span.SetError(cause)

	var appErr *apperrors.AppError
	if errors.As(localErr, &appErr) && appErr.Code == apperrors.CodeSchemaMismatch {
		return nil, apperrors.SchemaMismatch(appErr.Details, cause)
	}
	return nil, apperrors.DataUnavailable(cause)
}

// LoadLocal parses only the local copy.
func (l *Loader) LoadLocal(ctx context.Context) (*models.Dataset, error) {
	_, span := observability.StartSpan(ctx, "dataset.read_local")
	defer span.Finish()
	span.SetTag("path", l.localPath)

	f, err := os.Open(l.localPath)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("open local csv: %w", err)
	}
	defer f.Close()

	ds, err := ParseCSV(f, l.columns)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("parse local csv %s: %w", l.localPath, err)
	}

	ds.Source = models.SourceLocal
	ds.LoadedAt = time.Now()
	return ds, nil
}

func (l *Loader) loadRemote(ctx context.Context) (*models.Dataset, []byte, error) {
	ctx, span := observability.StartSpan(ctx, "dataset.fetch_remote")
	defer span.Finish()
	span.SetTag("url", l.remoteURL)

	ctx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
	defer cancel()

	body, err := l.fetch(ctx)
	if err != nil {
		span.SetError(err)
		return nil, nil, err
	}

	ds, err := ParseCSV(bytes.NewReader(body), l.columns)
	if err != nil {
		span.SetError(err)
		return nil, nil, fmt.Errorf("parse remote csv: %w", err)
	}

	ds.Source = models.SourceRemote
	ds.LoadedAt = time.Now()
	return ds, body, nil
}

func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.remoteURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxRemoteBytes {
		return nil, fmt.Errorf("remote csv larger than %d bytes", maxRemoteBytes)
	}
	return body, nil
}

// writeLocalCopy replaces the local file atomically so a concurrent reader
// sees either the old or the new content.
func (l *Loader) writeLocalCopy(body []byte) error {
	dir := filepath.Dir(l.localPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".salaries-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, l.localPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace local copy: %w", err)
	}

	if info, err := os.Stat(l.localPath); err == nil {
		l.mu.Lock()
		l.lastWrite = info.ModTime()
		l.mu.Unlock()
	}
	return nil
}

// LocalCopyIsOwnWrite reports whether the local file is still the one this
// loader last wrote.
func (l *Loader) LocalCopyIsOwnWrite() bool {
	info, err := os.Stat(l.localPath)
	if err != nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.lastWrite.IsZero() && info.ModTime().Equal(l.lastWrite)
}
