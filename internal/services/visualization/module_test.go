package visualization

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/services/ephemeris"
)

type fakeS3 struct {
	objects      map[string][]byte
	contentTypes map[string]string
	ttl          time.Duration
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (f *fakeS3) PutFile(_ context.Context, path string, data []byte, contentType string) error {
	f.objects[path] = data
	f.contentTypes[path] = contentType
	return nil
}

func (f *fakeS3) GetPresignedURL(_ context.Context, path string, expires time.Duration) (string, error) {
	f.ttl = expires
	return "https://minio.local/charts-bucket/" + path, nil
}

func TestSave(t *testing.T) {
	s3 := newFakeS3()
	svc := New(s3, 10*time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	vis, err := svc.Save(context.Background(), "abc", &ephemeris.Image{Format: "SVG", Data: []byte("<svg/>")})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if vis.ID != "charts/abc.svg" || vis.Format != "svg" {
		t.Fatalf("unexpected visualization %+v", vis)
	}
	if s3.contentTypes["charts/abc.svg"] != "image/svg+xml" {
		t.Fatalf("unexpected content type %q", s3.contentTypes["charts/abc.svg"])
	}

	url, err := svc.URL(context.Background(), vis)
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if url != "https://minio.local/charts-bucket/charts/abc.svg" || s3.ttl != 10*time.Minute {
		t.Fatalf("unexpected url %q ttl %s", url, s3.ttl)
	}
}

func TestSave_Rejects(t *testing.T) {
	svc := New(newFakeS3(), time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if _, err := svc.Save(context.Background(), "abc", &ephemeris.Image{Format: "svg"}); err == nil {
		t.Fatalf("expected error for empty image")
	}
	if _, err := svc.Save(context.Background(), "abc", &ephemeris.Image{Format: "gif", Data: []byte{1}}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if _, err := svc.URL(context.Background(), nil); !errors.Is(err, domain.ErrVisualizationNotFound) {
		t.Fatalf("expected ErrVisualizationNotFound, got %v", err)
	}
}
