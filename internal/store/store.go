// Package store keeps a record of media-processing jobs so a caller can
// look up a result after the request that produced it has returned. The
// local server keeps records in memory; the Lambda deployment writes them
// to DynamoDB, where a TTL attribute expires them after JobTTL.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/chatcut/chatcut/internal/action"
)

// JobTTL is how long job records are kept.
const JobTTL = 24 * time.Hour

// Job statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// JobStore persists job records. Implementations are safe for concurrent use.
//
// GetJob returns (nil, nil) when the job does not exist. PutJob replaces any
// existing record with the same ID.
type JobStore interface {
	PutJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
}

// Job is the outcome of one process-media request.
type Job struct {
	ID         string   `json:"id" dynamodbav:"-"`
	Status     string   `json:"status" dynamodbav:"status"`
	Prompt     string   `json:"prompt" dynamodbav:"prompt"`
	Files      []string `json:"files,omitempty" dynamodbav:"files,omitempty"`
	Action     string   `json:"action,omitempty" dynamodbav:"action,omitempty"`
	Message    string   `json:"message,omitempty" dynamodbav:"message,omitempty"`
	Error      string   `json:"error,omitempty" dynamodbav:"error,omitempty"`
	OutputPath string   `json:"output_path,omitempty" dynamodbav:"outputPath,omitempty"`
	TaskID     string   `json:"task_id,omitempty" dynamodbav:"taskId,omitempty"`
	CreatedAt  int64    `json:"createdAt" dynamodbav:"createdAt"`
}

// JobFromResult builds the record for a finished request.
func JobFromResult(id, prompt string, files []string, res action.Result, now time.Time) *Job {
	job := &Job{
		ID:         id,
		Status:     StatusCompleted,
		Prompt:     prompt,
		Files:      files,
		Action:     res.Action,
		Message:    res.Message,
		Error:      res.Error,
		OutputPath: res.OutputPath,
		TaskID:     res.TaskID,
		CreatedAt:  now.Unix(),
	}
	if res.Error != "" {
		job.Status = StatusFailed
	}
	return job
}

// MemoryStore is an in-process JobStore. Records older than JobTTL are
// dropped on write.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	now  func() time.Time
}

var _ JobStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: map[string]*Job{}, now: time.Now}
}

func (m *MemoryStore) PutJob(ctx context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-JobTTL).Unix()
	for id, j := range m.jobs {
		if j.CreatedAt < cutoff {
			delete(m.jobs, id)
		}
	}
	cp := *job
	cp.Files = append([]string(nil), job.Files...)
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MemoryStore) GetJob(ctx context.Context, id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}
