package gcp

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yungbote/draftcut-backend/internal/platform/dbctx"
)

func TestMemoryBucketRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBucket("")

	if err := b.UploadFile(dbctx.Context{Ctx: ctx}, "generated/image/a.jpg", strings.NewReader("jpeg-bytes")); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	rc, err := b.DownloadFile(ctx, "generated/image/a.jpg")
	if err != nil {
		t.Fatalf("DownloadFile: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(got) != "jpeg-bytes" {
		t.Fatalf("DownloadFile: got=%q", got)
	}

	attrs, err := b.GetObjectAttrs(ctx, "generated/image/a.jpg")
	if err != nil {
		t.Fatalf("GetObjectAttrs: %v", err)
	}
	if attrs.Size != int64(len("jpeg-bytes")) || attrs.ContentType != "image/jpeg" {
		t.Fatalf("attrs: got=%+v", attrs)
	}
	if u := b.GetPublicURL("/generated/image/a.jpg"); u != "memory://media/generated/image/a.jpg" {
		t.Fatalf("GetPublicURL: got=%q", u)
	}
}

func TestMemoryBucketDownloadToPath(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBucket("")
	if err := b.UploadFile(dbctx.Context{Ctx: ctx}, "k.mp3", strings.NewReader("audio")); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	dst := filepath.Join(t.TempDir(), "nested", "k.mp3")
	if err := b.DownloadToPath(ctx, "k.mp3", dst); err != nil {
		t.Fatalf("DownloadToPath: %v", err)
	}
	raw, err := os.ReadFile(dst)
	if err != nil || string(raw) != "audio" {
		t.Fatalf("local file: got=%q err=%v", raw, err)
	}

	missing := filepath.Join(t.TempDir(), "missing.mp3")
	if err := b.DownloadToPath(ctx, "nope.mp3", missing); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("missing key: want ErrObjectNotFound got=%v", err)
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Fatalf("missing key must not leave a file behind")
	}
}

func TestContentTypeForKey(t *testing.T) {
	cases := map[string]string{
		"a.JPG":       "image/jpeg",
		"b.mp3?sig=x": "audio/mpeg",
		"draft.zip":   "application/zip",
		"unknown.bin": "",
		"clip.mp4":    "video/mp4",
		"cover.png":   "image/png",
	}
	for key, want := range cases {
		if got := ContentTypeForKey(key); got != want {
			t.Fatalf("ContentTypeForKey(%q): want=%q got=%q", key, want, got)
		}
	}
}
