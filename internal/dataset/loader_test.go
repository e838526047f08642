package dataset

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"salary-dashboard/internal/config"
	apperrors "salary-dashboard/internal/errors"
	"salary-dashboard/internal/models"
)

func asAppError(err error, target **apperrors.AppError) bool {
	return stderrors.As(err, target)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLoader(remoteURL, localPath string) *Loader {
	return NewLoader(config.DataConfig{
		RemoteURL:    remoteURL,
		LocalPath:    localPath,
		FetchTimeout: 2 * time.Second,
	}, defaultColumns(), quietLogger())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoader_RemoteSuccessWritesLocalCopy(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/csv")
		io.WriteString(w, sampleCSV)
	}))
	defer srv.Close()

	localPath := filepath.Join(t.TempDir(), "nested", "salaries.csv")
	l := newTestLoader(srv.URL, localPath)

	ds, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if ds.Source != models.SourceRemote {
		t.Errorf("Source = %q, want remote", ds.Source)
	}
	if ds.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ds.Len())
	}

	written, err := os.ReadFile(localPath)
	if err != nil {
		t.Fatalf("local copy not written: %v", err)
	}
	if string(written) != sampleCSV {
		t.Errorf("local copy = %q, want remote body", written)
	}
	if !l.LocalCopyIsOwnWrite() {
		t.Error("LocalCopyIsOwnWrite() should be true right after the loader wrote the file")
	}
	if hits.Load() != 1 {
		t.Errorf("remote hits = %d, want 1", hits.Load())
	}
}

func TestLoader_RemoteFailureFallsBackToLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	localPath := filepath.Join(t.TempDir(), "salaries.csv")
	writeFile(t, localPath, sampleCSV)

	ds, err := newTestLoader(srv.URL, localPath).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() should fall back to local copy, got: %v", err)
	}
	if ds.Source != models.SourceLocal {
		t.Errorf("Source = %q, want local", ds.Source)
	}
	if ds.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ds.Len())
	}
}

func TestLoader_NetworkErrorFallsBackToLocal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	localPath := filepath.Join(t.TempDir(), "salaries.csv")
	writeFile(t, localPath, sampleCSV)

	ds, err := newTestLoader(url, localPath).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if ds.Source != models.SourceLocal {
		t.Errorf("Source = %q, want local", ds.Source)
	}
}

func TestLoader_TimeoutFallsBackToLocal(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	localPath := filepath.Join(t.TempDir(), "salaries.csv")
	writeFile(t, localPath, sampleCSV)

	l := NewLoader(config.DataConfig{
		RemoteURL:    srv.URL,
		LocalPath:    localPath,
		FetchTimeout: 50 * time.Millisecond,
	}, defaultColumns(), quietLogger())

	start := time.Now()
	ds, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if ds.Source != models.SourceLocal {
		t.Errorf("Source = %q, want local", ds.Source)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Load() took %v, fetch timeout not applied", elapsed)
	}
}

func TestLoader_MalformedRemoteDoesNotOverwriteLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>maintenance</html>")
	}))
	defer srv.Close()

	localPath := filepath.Join(t.TempDir(), "salaries.csv")
	writeFile(t, localPath, sampleCSV)

	ds, err := newTestLoader(srv.URL, localPath).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if ds.Source != models.SourceLocal {
		t.Errorf("Source = %q, want local", ds.Source)
	}

	content, _ := os.ReadFile(localPath)
	if string(content) != sampleCSV {
		t.Error("local copy should be untouched after a malformed remote response")
	}
}

func TestLoader_BothSourcesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	localPath := filepath.Join(t.TempDir(), "missing.csv")

	_, err := newTestLoader(srv.URL, localPath).Load(context.Background())
	if err == nil {
		t.Fatal("Load() should fail when no source is readable")
	}
	if !apperrors.HasCode(err, apperrors.CodeDataUnavailable) {
		t.Errorf("expected DATA_UNAVAILABLE, got %v", err)
	}
	if !stderrors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap the local cause, got %v", err)
	}
}

func TestLoader_LocalSchemaMismatch(t *testing.T) {
	localPath := filepath.Join(t.TempDir(), "salaries.csv")
	writeFile(t, localPath, "year,job_title\n2021,Data Scientist\n")

	_, err := newTestLoader("", localPath).Load(context.Background())
	if err == nil {
		t.Fatal("Load() should fail")
	}
	if !apperrors.HasCode(err, apperrors.CodeSchemaMismatch) {
		t.Errorf("expected SCHEMA_MISMATCH, got %v", err)
	}
}

func TestLoader_NoRemoteConfigured(t *testing.T) {
	localPath := filepath.Join(t.TempDir(), "salaries.csv")
	writeFile(t, localPath, sampleCSV)

	ds, err := newTestLoader("", localPath).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if ds.Source != models.SourceLocal {
		t.Errorf("Source = %q, want local", ds.Source)
	}
}

func TestLoader_Key(t *testing.T) {
	l := newTestLoader("http://example.test/a.csv", "/tmp/a.csv")
	want := Key{RemoteURL: "http://example.test/a.csv", LocalPath: "/tmp/a.csv"}
	if l.Key() != want {
		t.Errorf("Key() = %+v, want %+v", l.Key(), want)
	}
}
