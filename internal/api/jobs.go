package api

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/commodity-market/internal/config"
	"github.com/talgya/commodity-market/internal/decision"
	"github.com/talgya/commodity-market/internal/engine"
	"github.com/talgya/commodity-market/internal/persistence"
)

// Job statuses.
const (
	JobQueued   = "queued"
	JobRunning  = "running"
	JobFinished = "finished"
	JobFailed   = "failed"
)

// Job is one simulation run launched through the API.
type Job struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Config     config.Simulation `json:"config"`
	Summary    *engine.Summary   `json:"summary,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// JobManager launches and tracks simulation runs. Runs execute one at a
// time; a queued run waits for the previous one to release the slot.
type JobManager struct {
	db          *persistence.DB
	newProvider func() decision.Provider

	mu   sync.Mutex
	jobs map[string]*Job

	slot chan struct{}
}

// NewJobManager wires a manager to its storage and provider factory.
func NewJobManager(db *persistence.DB, newProvider func() decision.Provider) *JobManager {
	return &JobManager{
		db:          db,
		newProvider: newProvider,
		jobs:        make(map[string]*Job),
		slot:        make(chan struct{}, 1),
	}
}

// Launch validates the configuration, registers the run and starts it
// in the background. The returned Job is a snapshot taken before the
// run goroutine starts; poll Get for progress.
func (m *JobManager) Launch(cfg config.Simulation) (Job, error) {
	if err := cfg.Validate(); err != nil {
		return Job{}, err
	}

	job := &Job{
		ID:        uuid.NewString(),
		Status:    JobQueued,
		CreatedAt: time.Now().UTC(),
		Config:    cfg,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	snapshot := *job
	go m.run(job)
	return snapshot, nil
}

func (m *JobManager) run(job *Job) {
	m.slot <- struct{}{}
	defer func() { <-m.slot }()

	m.setStatus(job.ID, JobRunning, nil, "")
	if m.db != nil {
		if err := m.db.CreateRun(job.ID, job.Config); err != nil {
			slog.Error("register run failed", "job", job.ID, "err", err)
		}
	}

	sim, err := engine.New(job.Config, m.newProvider())
	if err == nil {
		err = sim.Run(context.Background())
	}

	if err != nil {
		slog.Error("simulation run failed", "job", job.ID, "err", err)
		m.setStatus(job.ID, JobFailed, nil, err.Error())
		if m.db != nil {
			_ = m.db.FinishRun(job.ID, persistence.StatusFailed, nil)
		}
		return
	}

	summary := sim.Summarize()
	m.setStatus(job.ID, JobFinished, &summary, "")
	if m.db != nil {
		if err := m.db.SaveRunResults(job.ID, sim); err != nil {
			slog.Error("persist run results failed", "job", job.ID, "err", err)
		}
		if err := m.db.FinishRun(job.ID, persistence.StatusFinished, &summary); err != nil {
			slog.Error("mark run finished failed", "job", job.ID, "err", err)
		}
	}
	slog.Info("simulation run finished", "job", job.ID,
		"wholesale_trades", summary.WholesaleTrades, "retail_volume", summary.RetailVolume)
}

func (m *JobManager) setStatus(id, status string, summary *engine.Summary, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	job.Error = errMsg
	if summary != nil {
		job.Summary = summary
	}
	if status == JobFinished || status == JobFailed {
		now := time.Now().UTC()
		job.FinishedAt = &now
	}
}

// Get returns a snapshot of a tracked job. The run goroutine keeps
// mutating the tracked job under the manager's lock, so callers never
// see live state.
func (m *JobManager) Get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns snapshots of all tracked jobs, newest first.
func (m *JobManager) List() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, *j)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs
}
