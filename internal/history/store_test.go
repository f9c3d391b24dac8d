package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	entries := []Entry{
		{RunID: "r1", Account: "111", Month: 12, Year: 2023, Path: "/s/dec.pdf", DownloadedAt: at},
		{RunID: "r1", Account: "111", Month: 2, Year: 2024, Path: "/s/feb.pdf", TextPath: "/s/feb.txt", DownloadedAt: at},
		{RunID: "r2", Account: "222", Month: 1, Year: 2024, Path: "/s/jan.pdf", DownloadedAt: at},
	}
	for _, e := range entries {
		if err := s.Add(ctx, e); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	got, err := s.List(ctx, "111")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Month != 2 || got[0].Year != 2024 {
		t.Errorf("first entry = %d/%d, want 2/2024", got[0].Month, got[0].Year)
	}
	if got[0].TextPath != "/s/feb.txt" {
		t.Errorf("TextPath = %q", got[0].TextPath)
	}
	if !got[0].DownloadedAt.Equal(at) {
		t.Errorf("DownloadedAt = %v, want %v", got[0].DownloadedAt, at)
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d entries, want 3", len(all))
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := s1.Add(context.Background(), Entry{RunID: "r", Account: "1", Month: 1, Year: 2024, Path: "p", DownloadedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s2.Close()

	got, err := s2.List(context.Background(), "1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("got %d entries after reopen, want 1", len(got))
	}
}
