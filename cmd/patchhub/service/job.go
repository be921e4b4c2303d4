package service

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/buildtrack/patchhub/common/clients"
	"github.com/buildtrack/patchhub/common/logger"
	"github.com/buildtrack/patchhub/common/models"
	"github.com/buildtrack/patchhub/common/patchutil"
)

// JobService manages the CI jobs that branch and build a service patch.
// A nil client disables CI entirely; every operation becomes a logged
// no-op so the workflow keeps moving on installations without Jenkins.
type JobService struct {
	client    clients.JobClient
	scriptDir string
	log       *logger.Logger
}

// NewJobService creates a job service. Pass a nil client to disable CI.
func NewJobService(client clients.JobClient, scriptDir string, log *logger.Logger) *JobService {
	return &JobService{client: client, scriptDir: scriptDir, log: log}
}

// Launch creates the patch's CI job and queues a run of it
func (s *JobService) Launch(ctx context.Context, patch *models.Patch) error {
	if s.client == nil {
		s.log.WithPatchID(patch.ID).Info("CI disabled, skipping job launch")
		return nil
	}

	name := patchutil.JobName(patch)
	if name == "" {
		return fmt.Errorf("patch %d: cannot derive CI job name", patch.ID)
	}

	log := s.log.WithPatchID(patch.ID)

	status, err := s.client.CreateJob(ctx, name, jobDefinition(patch, s.scriptDir))
	if err != nil {
		return fmt.Errorf("create CI job %s: %w", name, err)
	}
	switch status {
	case http.StatusOK:
	case http.StatusBadRequest:
		// Jenkins answers 400 when the job already exists; reuse it
		log.Warn("CI job already exists, reusing", "job", name)
	default:
		return fmt.Errorf("create CI job %s: status %d", name, status)
	}

	status, err = s.client.RunJob(ctx, name)
	if err != nil {
		return fmt.Errorf("run CI job %s: %w", name, err)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("run CI job %s: status %d", name, status)
	}

	log.Info("CI job launched", "job", name)
	return nil
}

// Discard deletes the patch's CI job. A 404 means the job was never
// created or already removed, which counts as success.
func (s *JobService) Discard(ctx context.Context, patch *models.Patch) error {
	if s.client == nil {
		return nil
	}

	name := patchutil.JobName(patch)
	if name == "" {
		return nil
	}

	status, err := s.client.DeleteJob(ctx, name)
	if err != nil {
		return fmt.Errorf("delete CI job %s: %w", name, err)
	}
	if status != http.StatusNotFound && (status < 200 || status > 299) {
		return fmt.Errorf("delete CI job %s: status %d", name, status)
	}

	s.log.WithPatchID(patch.ID).Info("CI job discarded", "job", name, "status", status)
	return nil
}

// jobDefinition renders the freestyle job configuration that checks out
// the patch branch and runs the service patch tool
func jobDefinition(patch *models.Patch, scriptDir string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString("<project>\n")
	fmt.Fprintf(&b, "  <description>Service patch %s build</description>\n", html.EscapeString(patch.Name))
	fmt.Fprintf(&b, "  <branch>%s</branch>\n", html.EscapeString(patchutil.BranchName(patch)))
	b.WriteString("  <builders>\n")
	b.WriteString("    <hudson.tasks.Shell>\n")
	fmt.Fprintf(&b, "      <command>%s</command>\n", html.EscapeString(patchutil.BuildCommand(patch, scriptDir)))
	b.WriteString("    </hudson.tasks.Shell>\n")
	b.WriteString("  </builders>\n")
	b.WriteString("</project>\n")
	return b.String()
}
