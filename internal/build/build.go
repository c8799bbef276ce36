// Package build resolves CodeBuild build metadata, including batch build
// semantics, and copies a build's CloudWatch logs into S3.
package build

import (
	"context"
	"regexp"
	"strconv"

	"codebuild-logs/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

var prSourceVersion = regexp.MustCompile(`^pr/(\d+)`)

// Clients are the services a Build talks to
type Clients struct {
	CodeBuild CodeBuildAPI
	Logs      cloudwatchlogs.FilterLogEventsAPIClient
	Storage   ObjectWriter
}

// Build wraps one build event. Details are fetched from CodeBuild on first
// use and then kept for the lifetime of the Build.
type Build struct {
	ID          string
	ProjectName string
	// EventStatus is the status carried by the event, before batch resolution
	EventStatus string

	codebuild    CodeBuildAPI
	logs         cloudwatchlogs.FilterLogEventsAPIClient
	storage      ObjectWriter
	logsEndpoint string
	logger       *logger.Logger

	resolved *snapshot
}

// snapshot is the result of resolving a build: its details plus the status
// and group identifier after batch resolution.
type snapshot struct {
	details         Details
	status          string
	groupIdentifier string
	hasGroup        bool
}

// New creates a Build for event. logsEndpoint is the base URL returned by
// LogsURL.
func New(event Event, clients Clients, logsEndpoint string, log *logger.Logger) *Build {
	if log == nil {
		log = logger.Nop()
	}
	return &Build{
		ID:           event.BuildID,
		ProjectName:  event.ProjectName,
		EventStatus:  event.BuildStatus,
		codebuild:    clients.CodeBuild,
		logs:         clients.Logs,
		storage:      clients.Storage,
		logsEndpoint: logsEndpoint,
		logger:       log.WithBuild(event.BuildID, event.ProjectName),
	}
}

// resolve fetches the build details once and applies batch resolution
func (b *Build) resolve(ctx context.Context) (*snapshot, error) {
	if b.resolved != nil {
		return b.resolved, nil
	}

	details, err := b.fetchDetails(ctx)
	if err != nil {
		return nil, err
	}

	snap := &snapshot{details: details, status: b.EventStatus}
	if err := b.resolveBatch(ctx, snap); err != nil {
		return nil, err
	}
	b.resolved = snap

	b.logger.Debug().
		Interface("details", snap.details).
		Str("status", snap.status).
		Msg("Build details resolved")

	return snap, nil
}

// Details returns the build details, fetching them on the first call
func (b *Build) Details(ctx context.Context) (Details, error) {
	snap, err := b.resolve(ctx)
	if err != nil {
		return Details{}, err
	}
	return snap.details, nil
}

// Status returns the build status. For a batch item this is the item's own
// status rather than the batch status carried by the event.
func (b *Build) Status(ctx context.Context) (string, error) {
	snap, err := b.resolve(ctx)
	if err != nil {
		return "", err
	}
	return snap.status, nil
}

// GroupIdentifier returns the batch group identifier of the build, if it is
// a batch item.
func (b *Build) GroupIdentifier(ctx context.Context) (string, bool, error) {
	snap, err := b.resolve(ctx)
	if err != nil {
		return "", false, err
	}
	return snap.groupIdentifier, snap.hasGroup, nil
}

// PRID returns the pull request number when the build ran for a pr/<n> source version
func (b *Build) PRID(ctx context.Context) (int, bool, error) {
	snap, err := b.resolve(ctx)
	if err != nil {
		return 0, false, err
	}
	id, ok := parsePRID(snap.details.SourceVersion)
	return id, ok, nil
}

// IsPRBuild reports whether the build is associated with a pull request
func (b *Build) IsPRBuild(ctx context.Context) (bool, error) {
	_, ok, err := b.PRID(ctx)
	return ok, err
}

// CommitID returns the commit the build ran against
func (b *Build) CommitID(ctx context.Context) (string, error) {
	snap, err := b.resolve(ctx)
	if err != nil {
		return "", err
	}
	if snap.details.ResolvedSourceVersion == "" {
		return "", ErrMissingCommit
	}
	return snap.details.ResolvedSourceVersion, nil
}

func parsePRID(sourceVersion string) (int, bool) {
	m := prSourceVersion.FindStringSubmatch(sourceVersion)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}
