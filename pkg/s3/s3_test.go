package s3

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestNewClientFromEnvRequiresEndpoint(t *testing.T) {
	t.Setenv("S3_ENDPOINT", "")
	t.Setenv("S3_ACCESS_KEY", "key")
	t.Setenv("S3_SECRET_KEY", "secret")
	if _, err := NewClientFromEnv(); err == nil {
		t.Fatal("expected error without S3_ENDPOINT")
	}
}

func TestLinkerPresignsNotes(t *testing.T) {
	t.Setenv("S3_ENDPOINT", "localhost:8333")
	t.Setenv("S3_ACCESS_KEY", "key")
	t.Setenv("S3_SECRET_KEY", "secret")
	t.Setenv("S3_DISABLE_TLS", "true")

	client, err := NewClientFromEnv()
	if err != nil {
		t.Fatalf("NewClientFromEnv() error = %v", err)
	}
	if _, err := NewLinker(client, "", time.Minute); err == nil {
		t.Fatal("NewLinker() expected error for empty bucket")
	}

	linker, err := NewLinker(client, "notes", time.Minute)
	if err != nil {
		t.Fatalf("NewLinker() error = %v", err)
	}
	link, err := linker.NotesLink(context.Background(), "/sessions/week1.pdf")
	if err != nil {
		t.Fatalf("NotesLink() error = %v", err)
	}
	if !strings.HasPrefix(link, "http://localhost:8333/notes/sessions/week1.pdf?") {
		t.Fatalf("NotesLink() = %q", link)
	}
	if !strings.Contains(link, "X-Amz-Expires=60") {
		t.Fatalf("NotesLink() missing expiry: %q", link)
	}

	if _, err := linker.NotesLink(context.Background(), ""); err == nil {
		t.Fatal("NotesLink() expected error for empty key")
	}
}
