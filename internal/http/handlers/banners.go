package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"letterbanner/internal/domain"
	"letterbanner/pkg/zip"
)

type generateResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type statusResponse struct {
	JobID            string            `json:"job_id"`
	Status           domain.JobStatus  `json:"status"`
	Progress         int               `json:"progress"`
	CurrentStep      string            `json:"current_step"`
	TotalLetters     int               `json:"total_letters"`
	CompletedLetters int               `json:"completed_letters"`
	ErrorMessage     *string           `json:"error_message"`
	CreatedAt        time.Time         `json:"created_at"`
	CompletedAt      *time.Time        `json:"completed_at"`
	Files            map[string]string `json:"files"`
}

func newStatusResponse(job *domain.Job) statusResponse {
	resp := statusResponse{
		JobID:            job.ID,
		Status:           job.Status,
		Progress:         job.Progress,
		CurrentStep:      job.CurrentStep,
		TotalLetters:     job.TotalLetters,
		CompletedLetters: job.CompletedLetters,
		CreatedAt:        job.CreatedAt,
		CompletedAt:      job.CompletedAt,
	}
	if job.ErrorMessage != "" {
		msg := job.ErrorMessage
		resp.ErrorMessage = &msg
	}
	if len(job.Files) > 0 {
		resp.Files = job.Files
	}
	return resp
}

func (a *App) GenerateBanner(w http.ResponseWriter, r *http.Request) {
	var req domain.BannerRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	job, err := a.Banners.Submit(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logger(r).Info().Str("job_id", job.ID).Int("letters", job.TotalLetters).Msg("http: banner job accepted")
	a.json(w, http.StatusAccepted, generateResponse{JobID: job.ID, Status: string(job.Status), Message: "Banner generation started"})
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := a.Store.Get(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newStatusResponse(job))
}

func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	job, ok := a.completedJob(w, r)
	if !ok {
		return
	}
	fileType := chi.URLParam(r, "file_type")
	path, found := job.Files[fileType]
	if !found {
		a.error(w, http.StatusNotFound, "not_found", "File not found")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "File no longer exists")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName(job, fileType, path)))
	http.ServeContent(w, r, "", info.ModTime(), f)
}

func downloadName(job *domain.Job, fileType, path string) string {
	switch fileType {
	case domain.FileBanner:
		return job.Request.Name + "_banner.png"
	case domain.FilePDF:
		return job.Request.Name + "_letters.pdf"
	default:
		return filepath.Base(path)
	}
}

func (a *App) DownloadAll(w http.ResponseWriter, r *http.Request) {
	job, ok := a.completedJob(w, r)
	if !ok {
		return
	}
	var entries []zip.Entry
	for _, key := range []string{domain.FileBanner, domain.FilePDF} {
		if path, found := job.Files[key]; found {
			entries = append(entries, zip.Entry{Name: downloadName(job, key, path), Path: path})
		}
	}
	for _, path := range job.LetterPaths() {
		entries = append(entries, zip.Entry{Name: "letters/" + filepath.Base(path), Path: path})
	}
	if len(entries) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "File not found")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.Request.Name+"_banner.zip"))
	w.WriteHeader(http.StatusOK)
	skipped, err := zip.WriteFiles(w, entries, time.Now())
	if err != nil {
		a.logger(r).Error().Err(err).Str("job_id", job.ID).Msg("http: zip stream failed")
		return
	}
	if len(skipped) > 0 {
		a.logger(r).Warn().Strs("skipped", skipped).Str("job_id", job.ID).Msg("http: zip skipped missing files")
	}
}

type editLetterRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

func (a *App) EditLetter(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "index must be a non-negative integer")
		return
	}
	var req editLetterRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	job, err := a.Banners.EditLetter(r.Context(), chi.URLParam(r, "job_id"), index, req.Prompt, req.Model)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newStatusResponse(job))
}

func (a *App) RegeneratePDF(w http.ResponseWriter, r *http.Request) {
	job, err := a.Banners.RegeneratePDF(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newStatusResponse(job))
}

func (a *App) completedJob(w http.ResponseWriter, r *http.Request) (*domain.Job, bool) {
	job, err := a.Store.Get(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "Job not found")
			return nil, false
		}
		a.fail(w, r, err)
		return nil, false
	}
	if job.Status != domain.JobStatusCompleted {
		a.error(w, http.StatusBadRequest, "bad_request", "Job not completed yet")
		return nil, false
	}
	return job, true
}
