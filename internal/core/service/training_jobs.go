package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/tdnguyen/retail-analytics/internal/core/domain"
)

// StartTrainAll kicks off a full training run in the background and returns
// immediately with a pollable job. The run uses a detached context so it
// survives the request that started it.
func (s *MLService) StartTrainAll(ctx context.Context) domain.TrainingJob {
	job := &domain.TrainingJob{
		ID:        uuid.NewString(),
		State:     domain.JobStatePending,
		StartedAt: s.now(),
	}

	s.jobsMu.Lock()
	s.jobs[job.ID] = job
	s.jobsMu.Unlock()

	go func() {
		s.jobsMu.Lock()
		job.State = domain.JobStateRunning
		s.jobsMu.Unlock()

		result := s.TrainAll(context.WithoutCancel(ctx))

		finished := s.now()
		s.jobsMu.Lock()
		job.State = domain.JobStateDone
		job.FinishedAt = &finished
		job.Result = &result
		s.jobsMu.Unlock()
	}()

	return s.jobSnapshot(job.ID)
}

// Job returns a snapshot of a training job by id.
func (s *MLService) Job(id string) (domain.TrainingJob, bool) {
	s.jobsMu.Lock()
	_, ok := s.jobs[id]
	s.jobsMu.Unlock()
	if !ok {
		return domain.TrainingJob{}, false
	}
	return s.jobSnapshot(id), true
}

func (s *MLService) jobSnapshot(id string) domain.TrainingJob {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	return *s.jobs[id]
}
