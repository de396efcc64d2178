package banner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"letterbanner/internal/adapter/repo"
	"letterbanner/internal/domain"
	"letterbanner/internal/letters"
	imagemodel "letterbanner/internal/providers/image"
	"letterbanner/internal/providers/synthetic"
	"letterbanner/internal/retry"
	"letterbanner/internal/storage"
)

type tileModel struct {
	fail map[string]bool
}

func (m *tileModel) ID() string { return "tiles" }

func (m *tileModel) Generate(ctx context.Context, req imagemodel.LetterPrompt) (*imagemodel.Asset, error) {
	if m.fail[req.Letter] {
		return nil, errors.New("content rejected")
	}
	data, err := synthetic.LetterTile(req.Letter, synthetic.Seed(req.Letter, req.Theme), 64)
	if err != nil {
		return nil, err
	}
	return &imagemodel.Asset{Data: data, Model: m.ID()}, nil
}

func (m *tileModel) Edit(ctx context.Context, req imagemodel.EditRequest) (*imagemodel.Asset, error) {
	data, err := synthetic.Restyle(req.Source, synthetic.Seed(req.Prompt))
	if err != nil {
		return nil, err
	}
	return &imagemodel.Asset{Data: data, Model: m.ID()}, nil
}

type recordingMirror struct {
	mu    sync.Mutex
	paths []string
}

func (m *recordingMirror) Upload(ctx context.Context, jobID, localPath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, localPath)
	return jobID + "/" + filepath.Base(localPath), nil
}

type fixture struct {
	pipeline *Pipeline
	store    *repo.MemoryJobStore
	files    *storage.FileStore
	mirror   *recordingMirror
}

func newFixture(t *testing.T, model *tileModel) *fixture {
	t.Helper()
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	registry := imagemodel.NewRegistry(model)
	store := repo.NewMemoryJobStore()
	mirror := &recordingMirror{}
	p, err := NewPipeline(Options{
		Store:   store,
		Letters: letters.NewService(registry, files, retry.Policy{MaxAttempts: 1}, nil),
		Models:  registry,
		Files:   files,
		Mirror:  mirror,
		Workers: 2,
	})
	if err != nil {
		t.Fatalf("NewPipeline error: %v", err)
	}
	p.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	return &fixture{pipeline: p, store: store, files: files, mirror: mirror}
}

func adaRequest() domain.BannerRequest {
	return domain.BannerRequest{
		Name: "Ada",
		Letters: []domain.LetterSpec{
			{Letter: "a", Object: "apple"},
			{Letter: "D", Object: "drum"},
			{Letter: "A", Object: "anchor"},
		},
		ColorPalette: "ocean_breeze",
	}
}

func (f *fixture) runJob(t *testing.T, req domain.BannerRequest) *domain.Job {
	t.Helper()
	return f.runJobAs(t, "job-1", req)
}

func (f *fixture) runJobAs(t *testing.T, id string, req domain.BannerRequest) *domain.Job {
	t.Helper()
	if err := f.pipeline.Validate(&req); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	job := domain.NewJob(id, req, f.pipeline.now())
	if err := f.store.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	_ = f.pipeline.Run(context.Background(), job.ID)
	got, err := f.store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	return got
}

func TestRunCompletes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &tileModel{})
	job := f.runJob(t, adaRequest())

	if job.Status != domain.JobStatusCompleted || job.Progress != 100 {
		t.Fatalf("status = %s progress = %d", job.Status, job.Progress)
	}
	if job.CurrentStep != "Banner generation completed!" {
		t.Fatalf("step = %q", job.CurrentStep)
	}
	if job.CompletedLetters != 3 || job.TotalLetters != 3 {
		t.Fatalf("letters = %d/%d", job.CompletedLetters, job.TotalLetters)
	}
	if got := filepath.Base(job.Files[domain.FileBanner]); got != "printable_banner_20240506_070809_job1.png" {
		t.Fatalf("banner = %q", got)
	}
	if got := filepath.Base(job.Files[domain.FilePDF]); got != "ada_letters_20240506_070809_job1.pdf" {
		t.Fatalf("pdf = %q", got)
	}
	letterPaths := job.LetterPaths()
	if len(letterPaths) != 3 || !strings.Contains(letterPaths[1], "letter_1_D_drum_") {
		t.Fatalf("letters = %v", letterPaths)
	}
	for key, path := range job.Files {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("%s missing on disk: %v", key, err)
		}
	}
	if len(f.mirror.paths) != 5 {
		t.Fatalf("mirrored %d files, want 5", len(f.mirror.paths))
	}
}

func TestRunKeepsPartialLetters(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &tileModel{fail: map[string]bool{"D": true}})
	job := f.runJob(t, adaRequest())

	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}
	if job.CompletedLetters != 2 {
		t.Fatalf("completed letters = %d, want 2", job.CompletedLetters)
	}
	if _, ok := job.Files["letter_2"]; ok {
		t.Fatal("letter keys should be compacted over failed letters")
	}
	if !strings.Contains(job.Files["letter_1"], "letter_2_A_anchor_") {
		t.Fatalf("letter_1 = %q", job.Files["letter_1"])
	}
}

func TestRunFailsWithoutLetters(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &tileModel{fail: map[string]bool{"A": true, "D": true}})
	job := f.runJob(t, adaRequest())

	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if !strings.HasPrefix(job.CurrentStep, "Generation failed: ") {
		t.Fatalf("step = %q", job.CurrentStep)
	}
	if !strings.Contains(job.ErrorMessage, domain.ErrNoLetters.Error()) {
		t.Fatalf("error message = %q", job.ErrorMessage)
	}
	if _, ok := job.Files[domain.FileBanner]; ok {
		t.Fatal("failed job must not record a banner")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &tileModel{})
	cases := []struct {
		name string
		edit func(*domain.BannerRequest)
		want error
	}{
		{name: "unknown_palette", edit: func(r *domain.BannerRequest) { r.ColorPalette = "neon" }, want: domain.ErrInvalidRequest},
		{name: "unknown_model", edit: func(r *domain.BannerRequest) { r.Model = "dall-e-2" }, want: domain.ErrUnsupportedModel},
		{name: "empty_name", edit: func(r *domain.BannerRequest) { r.Name = " " }, want: domain.ErrInvalidRequest},
		{name: "custom_palette", edit: func(r *domain.BannerRequest) { r.ColorPalette = "custom"; r.CustomColors = []string{"red"} }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := adaRequest()
			tc.edit(&req)
			err := f.pipeline.Validate(&req)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("Validate error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSubmitRunsInBackground(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &tileModel{})
	job, err := f.pipeline.Submit(context.Background(), adaRequest())
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if job.Status != domain.JobStatusPending || job.ID == "" {
		t.Fatalf("submitted job = %+v", job)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := f.pipeline.Wait(ctx); err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	got, _ := f.store.Get(context.Background(), job.ID)
	if got.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
}

func TestEditLetterAndRegeneratePDF(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &tileModel{})
	ctx := context.Background()

	pending := domain.NewJob("pending", adaRequest(), time.Now())
	_ = f.store.Create(ctx, pending)
	if _, err := f.pipeline.EditLetter(ctx, "pending", 0, "stars", ""); !errors.Is(err, domain.ErrJobNotCompleted) {
		t.Fatalf("err = %v, want ErrJobNotCompleted", err)
	}

	job := f.runJob(t, adaRequest())
	original := job.Files["letter_1"]

	if _, err := f.pipeline.EditLetter(ctx, job.ID, 9, "stars", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := f.pipeline.EditLetter(ctx, job.ID, 1, "stars", "nope"); !errors.Is(err, domain.ErrUnsupportedModel) {
		t.Fatalf("err = %v, want ErrUnsupportedModel", err)
	}

	edited, err := f.pipeline.EditLetter(ctx, job.ID, 1, "add stars", "")
	if err != nil {
		t.Fatalf("EditLetter error: %v", err)
	}
	if edited.Files["letter_1"] == original || !strings.Contains(edited.Files["letter_1"], "letter_1_D_edited_") {
		t.Fatalf("letter_1 = %q", edited.Files["letter_1"])
	}
	if _, err := os.Stat(original); !os.IsNotExist(err) {
		t.Fatalf("replaced letter should be removed, stat err = %v", err)
	}

	regenerated, err := f.pipeline.RegeneratePDF(ctx, job.ID)
	if err != nil {
		t.Fatalf("RegeneratePDF error: %v", err)
	}
	if _, err := os.Stat(regenerated.Files[domain.FilePDF]); err != nil {
		t.Fatalf("pdf missing: %v", err)
	}
}

func TestJobsInSameSecondKeepSeparateFiles(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &tileModel{})

	first := f.runJobAs(t, "job-a", adaRequest())
	before, err := os.ReadFile(first.Files[domain.FileBanner])
	if err != nil {
		t.Fatalf("read banner: %v", err)
	}
	req := adaRequest()
	req.Letters[1].Object = "dragon"
	second := f.runJobAs(t, "job-b", req)

	owner := map[string]string{}
	for key, path := range first.Files {
		owner[path] = "job-a " + key
	}
	for key, path := range second.Files {
		if prev, ok := owner[path]; ok {
			t.Fatalf("job-b %s shares %s with %s", key, path, prev)
		}
	}
	after, err := os.ReadFile(first.Files[domain.FileBanner])
	if err != nil {
		t.Fatalf("read banner after second job: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("second job rewrote the first job's banner")
	}
}

func TestEditRepeatedLetterKeepsItsTwin(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &tileModel{})
	job := f.runJob(t, domain.BannerRequest{
		Name: "Anna",
		Letters: []domain.LetterSpec{
			{Letter: "A", Object: "apple"},
			{Letter: "N", Object: "nest"},
			{Letter: "N", Object: "nest"},
			{Letter: "A", Object: "apple"},
		},
	})
	if job.Files["letter_1"] == job.Files["letter_2"] {
		t.Fatalf("repeated letters share %s", job.Files["letter_1"])
	}
	twin := job.Files["letter_2"]

	edited, err := f.pipeline.EditLetter(context.Background(), job.ID, 1, "add twigs", "")
	if err != nil {
		t.Fatalf("EditLetter error: %v", err)
	}
	if edited.Files["letter_2"] != twin {
		t.Fatalf("letter_2 = %q, want %q", edited.Files["letter_2"], twin)
	}
	if _, err := os.Stat(twin); err != nil {
		t.Fatalf("letter_2 removed by edit of letter_1: %v", err)
	}
}

func TestConcurrentEditsBuildBannerFromLatestLetters(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &tileModel{})
	ctx := context.Background()
	job := f.runJob(t, adaRequest())
	originals := []string{job.Files["letter_0"], job.Files["letter_2"]}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, index := range []int{0, 2} {
		index := index
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.pipeline.EditLetter(ctx, job.ID, index, "add waves", "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("EditLetter error: %v", err)
		}
	}

	final, _ := f.store.Get(ctx, job.ID)
	for _, key := range []string{"letter_0", "letter_2"} {
		if !strings.Contains(final.Files[key], "_edited_") {
			t.Fatalf("%s = %q, want an edited letter", key, final.Files[key])
		}
	}
	for _, path := range originals {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("replaced letter %s still on disk, stat err = %v", path, err)
		}
	}

	want := filepath.Join(t.TempDir(), "expected.png")
	if _, err := f.pipeline.layout.BannerFromFiles(final.LetterPaths(), want, 0); err != nil {
		t.Fatalf("BannerFromFiles error: %v", err)
	}
	wantBytes, _ := os.ReadFile(want)
	gotBytes, err := os.ReadFile(final.Files[domain.FileBanner])
	if err != nil {
		t.Fatalf("read banner: %v", err)
	}
	if !bytes.Equal(gotBytes, wantBytes) {
		t.Fatal("banner was not rebuilt from the latest letters")
	}
}

func TestLetterOf(t *testing.T) {
	t.Parallel()
	for path, want := range map[string]string{
		"/out/letter_banner_x/letter_3_Q_quilt_x.png":        "Q",
		"/out/letter_banner_x/letter_0_N_edited_17_ab12.png": "N",
		"/out/letter_banner_x/letter_Q_quilt_x.png":          "Q",
	} {
		if got := letterOf(path); got != want {
			t.Fatalf("letterOf(%q) = %q, want %q", path, got, want)
		}
	}
	if got := DocumentKey("s", "Mary Jane"); got != "letter_banner_s/mary_jane_letters_s.pdf" {
		t.Fatalf("DocumentKey = %q", got)
	}
}
