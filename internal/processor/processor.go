package processor

import (
	"context"
	"fmt"

	"codebuild-logs/internal/build"
	"codebuild-logs/internal/config"
	"codebuild-logs/pkg/logger"

	"github.com/aws/aws-lambda-go/events"
)

// Result describes what was done with one build event
type Result struct {
	BuildID         string `json:"buildId"`
	Project         string `json:"project"`
	Status          string `json:"status"`
	GroupIdentifier string `json:"groupIdentifier,omitempty"`
	PRID            int    `json:"prId,omitempty"`
	CommitID        string `json:"commitId,omitempty"`
	LogsURL         string `json:"logsUrl,omitempty"`
	Skipped         bool   `json:"skipped,omitempty"`
	SkipReason      string `json:"skipReason,omitempty"`
}

// Processor handles CodeBuild state change events
type Processor struct {
	clients build.Clients
	config  config.ProcessorConfig
	logger  *logger.Logger
}

// New creates a Processor
func New(clients build.Clients, cfg config.ProcessorConfig, logger *logger.Logger) *Processor {
	return &Processor{
		clients: clients,
		config:  cfg,
		logger:  logger,
	}
}

// Handle processes one build event. Service failures are returned so the
// invocation is reported as failed.
func (p *Processor) Handle(ctx context.Context, ev events.CloudWatchEvent) (*Result, error) {
	event, err := build.ParseEvent(ev)
	if err != nil {
		p.logger.WithField("event_id", ev.ID).Error().
			Err(err).
			Msg("Rejected build event")
		return nil, err
	}

	log := p.logger.WithBuild(event.BuildID, event.ProjectName)
	result := &Result{
		BuildID: event.BuildID,
		Project: event.ProjectName,
		Status:  event.BuildStatus,
	}

	if !p.config.HandlesStatus(event.BuildStatus) {
		log.Debug().
			Str("status", event.BuildStatus).
			Msg("Ignoring build status")
		return skip(result, "build status not handled"), nil
	}

	b := build.New(event, p.clients, p.config.LogsAPIEndpoint, p.logger)

	prID, isPR, err := b.PRID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve build %s: %w", event.BuildID, err)
	}
	if result.Status, err = b.Status(ctx); err != nil {
		return nil, err
	}
	if group, ok, err := b.GroupIdentifier(ctx); err != nil {
		return nil, err
	} else if ok {
		result.GroupIdentifier = group
	}
	if isPR {
		result.PRID = prID
	}

	if !isPR && !p.config.CopyAllBuilds {
		log.Info().
			Str("status", result.Status).
			Msg("Not a PR build, skipping")
		return skip(result, "not a pull request build"), nil
	}

	if result.CommitID, err = b.CommitID(ctx); err != nil {
		return nil, err
	}

	if err := b.CopyLogs(ctx); err != nil {
		return nil, fmt.Errorf("failed to copy logs for build %s: %w", event.BuildID, err)
	}

	if result.LogsURL, err = b.LogsURL(ctx); err != nil {
		return nil, err
	}

	log.Info().
		Str("status", result.Status).
		Str("group_identifier", result.GroupIdentifier).
		Int("pr_id", result.PRID).
		Str("commit_id", result.CommitID).
		Str("logs_url", result.LogsURL).
		Msg("Build processed")

	return result, nil
}

func skip(r *Result, reason string) *Result {
	r.Skipped = true
	r.SkipReason = reason
	return r
}
