package banner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"letterbanner/internal/adapter/repo"
	"letterbanner/internal/domain"
	"letterbanner/internal/storage"
)

func TestSweeperRemovesExpiredJobsAndFiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := repo.NewMemoryJobStore()
	now := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

	old := domain.NewJob("old", adaRequest(), now.Add(-25*time.Hour))
	letterPath, _ := files.Write(ctx, "letter_banner_old/letter_A_apple.png", []byte("a"))
	bannerPath, _ := files.Write(ctx, "letter_banner_old/printable_banner.png", []byte("b"))
	old.SetFile("letter_0", letterPath)
	old.SetFile(domain.FileBanner, bannerPath)
	fresh := domain.NewJob("fresh", adaRequest(), now.Add(-time.Hour))
	for _, j := range []*domain.Job{old, fresh} {
		if err := store.Create(ctx, j); err != nil {
			t.Fatal(err)
		}
	}

	sweeper := NewSweeper(store, files, 24*time.Hour, nil)
	sweeper.now = func() time.Time { return now }
	n, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep error: %v", err)
	}
	if n != 1 {
		t.Fatalf("removed = %d, want 1", n)
	}
	if _, err := store.Get(ctx, "old"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("old job still stored: %v", err)
	}
	if _, err := store.Get(ctx, "fresh"); err != nil {
		t.Fatalf("fresh job removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(files.BasePath(), "letter_banner_old")); !os.IsNotExist(err) {
		t.Fatalf("run directory should be gone, stat err = %v", err)
	}
}

func TestSweeperStartStop(t *testing.T) {
	t.Parallel()
	files, _ := storage.NewFileStore(t.TempDir())
	sweeper := NewSweeper(repo.NewMemoryJobStore(), files, time.Hour, nil)
	if err := sweeper.Start(context.Background(), time.Minute); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	sweeper.Stop()
}
