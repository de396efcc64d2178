package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Active reports whether the job still has work in flight.
func (s JobStatus) Active() bool {
	return s == JobStatusPending || s == JobStatusProcessing
}

// Well-known keys of Job.Files.
const (
	FileBanner    = "banner"
	FilePDF       = "pdf"
	letterFileKey = "letter_"
)

// LetterFileKey returns the Files key of the i-th generated letter.
func LetterFileKey(i int) string {
	return letterFileKey + strconv.Itoa(i)
}

// ParseLetterFileKey extracts the letter index from a Files key.
func ParseLetterFileKey(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, letterFileKey)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Job tracks one banner generation from submission to artifacts.
type Job struct {
	ID               string            `json:"job_id"`
	Status           JobStatus         `json:"status"`
	Progress         int               `json:"progress"`
	CurrentStep      string            `json:"current_step"`
	TotalLetters     int               `json:"total_letters"`
	CompletedLetters int               `json:"completed_letters"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	Files            map[string]string `json:"files,omitempty"`
	Request          BannerRequest     `json:"request"`
	RunStamp         string            `json:"run_stamp"`
}

// NewJob returns a pending job for req.
func NewJob(id string, req BannerRequest, now time.Time) *Job {
	return &Job{
		ID:           id,
		Status:       JobStatusPending,
		CurrentStep:  "Initializing...",
		TotalLetters: len(req.Letters),
		CreatedAt:    now,
		UpdatedAt:    now,
		Request:      req,
		RunStamp:     RunStamp(id, now),
	}
}

// RunStamp names the artifacts of one job. The timestamp has one second
// resolution, so the first alphanumerics of the job id keep jobs started in
// the same second apart.
func RunStamp(id string, now time.Time) string {
	stamp := now.Format("20060102_150405")
	var suffix strings.Builder
	for _, r := range id {
		if suffix.Len() == 8 {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			suffix.WriteRune(r)
		}
	}
	if suffix.Len() == 0 {
		return stamp
	}
	return stamp + "_" + suffix.String()
}

// Clone returns a deep copy so callers can mutate it freely.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	if j.Files != nil {
		out.Files = make(map[string]string, len(j.Files))
		for k, v := range j.Files {
			out.Files[k] = v
		}
	}
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		out.CompletedAt = &at
	}
	out.Request.Letters = append([]LetterSpec(nil), j.Request.Letters...)
	out.Request.CustomColors = append([]string(nil), j.Request.CustomColors...)
	return &out
}

// SetFile records an artifact path under key.
func (j *Job) SetFile(key, path string) {
	if j.Files == nil {
		j.Files = map[string]string{}
	}
	j.Files[key] = path
}

// LetterPaths returns the letter artifacts ordered by their index.
func (j *Job) LetterPaths() []string {
	type entry struct {
		index int
		path  string
	}
	var entries []entry
	for key, path := range j.Files {
		if i, ok := ParseLetterFileKey(key); ok {
			entries = append(entries, entry{index: i, path: path})
		}
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].index < entries[b].index })
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.path
	}
	return paths
}

// Complete marks the job finished at now.
func (j *Job) Complete(now time.Time, step string) {
	j.Status = JobStatusCompleted
	j.Progress = 100
	j.CurrentStep = step
	j.CompletedAt = &now
}

// Fail marks the job failed with err.
func (j *Job) Fail(now time.Time, err error) {
	j.Status = JobStatusFailed
	j.ErrorMessage = err.Error()
	j.CurrentStep = fmt.Sprintf("Generation failed: %s", err.Error())
	j.CompletedAt = &now
}
