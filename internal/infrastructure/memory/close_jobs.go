package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
)

// CloseJobRepository keeps close jobs in process memory. Jobs do not survive
// a restart; deployments that need durable scheduling use the MySQL
// repository instead.
type CloseJobRepository struct {
	mu   sync.Mutex
	jobs map[string]*domain.CloseJob
}

func NewCloseJobRepository() *CloseJobRepository {
	return &CloseJobRepository{jobs: make(map[string]*domain.CloseJob)}
}

func (r *CloseJobRepository) CreateJob(_ context.Context, job *domain.CloseJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *CloseJobRepository) DueJobs(_ context.Context, before int64) ([]*domain.CloseJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*domain.CloseJob
	for _, job := range r.jobs {
		if job.Status == domain.JobPending && job.RunAt <= before {
			copied := *job
			due = append(due, &copied)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RunAt < due[j].RunAt })
	return due, nil
}

func (r *CloseJobRepository) MarkExecuted(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[jobID]; ok {
		job.Status = domain.JobExecuted
	}
	return nil
}
