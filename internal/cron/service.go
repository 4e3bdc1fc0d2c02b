// Package cron schedules recurring casts. Fired jobs re-enter the message
// bus as synthetic /cast commands for the chat that registered them, so they
// flow through the exact same path as a hand-typed command.
package cron

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/coopco/castbot/internal/bus"
)

type Service struct {
	scheduler *robfigcron.Cron
	bus       *bus.MessageBus
	storePath string
	jobs      map[string]robfigcron.EntryID
	jobDefs   map[string]Job
	mu        sync.Mutex
	counter   int
}

func NewService(storePath string, msgBus *bus.MessageBus) *Service {
	return &Service{
		scheduler: robfigcron.New(),
		bus:       msgBus,
		storePath: storePath,
		jobs:      make(map[string]robfigcron.EntryID),
		jobDefs:   make(map[string]Job),
	}
}

// Start begins the cron scheduler.
func (s *Service) Start() {
	s.scheduler.Start()
}

// Stop stops the cron scheduler.
func (s *Service) Stop() {
	s.scheduler.Stop()
}

// AddJob registers a new scheduled cast for the given chat. Returns the job ID.
func (s *Service) AddJob(schedule Schedule, text, channel, chatID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := Job{
		ID:        fmt.Sprintf("job_%d", s.counter),
		Schedule:  schedule,
		Text:      text,
		Channel:   channel,
		ChatID:    chatID,
		CreatedAt: time.Now(),
	}
	if err := s.register(job); err != nil {
		return "", err
	}
	s.counter++

	if err := s.saveToDisk(); err != nil {
		slog.Warn("failed to persist cron jobs", "error", err)
	}

	return job.ID, nil
}

// register wires a job into the scheduler and the in-memory maps under the
// job's own ID. Caller must hold s.mu.
func (s *Service) register(job Job) error {
	cronExpr, err := toCronExpr(job.Schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	entryID, err := s.scheduler.AddFunc(cronExpr, func() {
		s.bus.PublishInbound(bus.InboundEvent{
			Channel:  job.Channel,
			ChatID:   job.ChatID,
			Kind:     bus.KindCommand,
			Command:  "cast",
			Args:     job.Text,
			Metadata: map[string]string{"source": "cron", "job_id": job.ID},
		})
	})
	if err != nil {
		return fmt.Errorf("failed to register cron job: %w", err)
	}

	s.jobs[job.ID] = entryID
	s.jobDefs[job.ID] = job
	return nil
}

// RemoveJob removes a scheduled cast by ID.
func (s *Service) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %q not found", id)
	}

	s.scheduler.Remove(entryID)
	delete(s.jobs, id)
	delete(s.jobDefs, id)

	if err := s.saveToDisk(); err != nil {
		slog.Warn("failed to persist cron jobs after removal", "error", err)
	}

	return nil
}

// ListJobs returns all registered jobs, sorted by ID for stable listings.
func (s *Service) ListJobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Job, 0, len(s.jobDefs))
	for _, job := range s.jobDefs {
		result = append(result, job)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// LoadFromDisk loads persisted jobs and re-registers them under their
// original IDs, so /unschedule references stay valid across restarts.
func (s *Service) LoadFromDisk() error {
	data, err := os.ReadFile(s.storePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cron store: %w", err)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return fmt.Errorf("failed to parse cron store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range store.Jobs {
		if err := s.register(job); err != nil {
			slog.Warn("failed to restore cron job", "id", job.ID, "error", err)
			continue
		}
		// Keep the counter ahead of restored IDs so new jobs never collide.
		var n int
		if _, err := fmt.Sscanf(job.ID, "job_%d", &n); err == nil && n >= s.counter {
			s.counter = n + 1
		}
	}
	return nil
}

// saveToDisk persists current jobs to JSON file. Caller must hold s.mu.
func (s *Service) saveToDisk() error {
	jobs := make([]Job, 0, len(s.jobDefs))
	for _, job := range s.jobDefs {
		jobs = append(jobs, job)
	}

	store := Store{Jobs: jobs}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cron store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.storePath), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	return os.WriteFile(s.storePath, data, 0o644)
}

// toCronExpr converts a Schedule to a robfig/cron expression string.
func toCronExpr(schedule Schedule) (string, error) {
	switch schedule.Type {
	case ScheduleCron:
		return schedule.Expression, nil
	case ScheduleEvery:
		d, err := time.ParseDuration(schedule.Expression)
		if err != nil {
			return "", fmt.Errorf("invalid duration %q: %w", schedule.Expression, err)
		}
		return fmt.Sprintf("@every %s", d), nil
	case ScheduleAt:
		var h, m int
		if _, err := fmt.Sscanf(schedule.Expression, "%d:%d", &h, &m); err != nil {
			return "", fmt.Errorf("invalid time %q, expected HH:MM: %w", schedule.Expression, err)
		}
		if h < 0 || h > 23 || m < 0 || m > 59 {
			return "", fmt.Errorf("time %q out of range", schedule.Expression)
		}
		return fmt.Sprintf("%d %d * * *", m, h), nil
	default:
		return "", fmt.Errorf("unknown schedule type %q", schedule.Type)
	}
}
