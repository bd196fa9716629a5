package cron

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

var errNilJob = errors.New("cron job is nil")

// Registry holds jobs in the order they run within a cycle.
type Registry struct {
	jobs []Job
}

// NewRegistry drops nil jobs and later jobs whose name is already taken.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		_ = r.Register(job)
	}
	return r
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return errNilJob
	}
	name := job.Name()
	if slices.ContainsFunc(r.jobs, func(j Job) bool { return j.Name() == name }) {
		return fmt.Errorf("cron job %q already registered", name)
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}
