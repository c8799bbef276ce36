package build

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

const (
	logsFileName    = "build.log"
	logsContentType = "text/plain"
)

// ObjectWriter stores an object under key
type ObjectWriter interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentType string) error
}

// LogsKey returns the storage key the build's logs are written to
func (b *Build) LogsKey(ctx context.Context) (string, error) {
	snap, err := b.resolve(ctx)
	if err != nil {
		return "", err
	}
	return logsKey(snap.details)
}

func logsKey(d Details) (string, error) {
	if d.LogStream == "" {
		return "", ErrMissingLogs
	}
	return fmt.Sprintf("%s/%s", d.LogStream, logsFileName), nil
}

// CopyLogs reads every event of the build's log stream and writes the
// concatenated messages to storage.
func (b *Build) CopyLogs(ctx context.Context) error {
	snap, err := b.resolve(ctx)
	if err != nil {
		return err
	}
	details := snap.details
	if details.LogGroup == "" {
		return ErrMissingLogs
	}
	key, err := logsKey(details)
	if err != nil {
		return err
	}

	content, pages, err := b.readLogs(ctx, details.LogGroup, details.LogStream)
	if err != nil {
		return err
	}

	if err := b.storage.PutObject(ctx, key, strings.NewReader(content), logsContentType); err != nil {
		b.logger.Error().
			Err(err).
			Str("key", key).
			Msg("Failed to store build logs")
		return fmt.Errorf("failed to store build logs: %w", err)
	}

	b.logger.Info().
		Str("log_group", details.LogGroup).
		Str("log_stream", details.LogStream).
		Str("key", key).
		Int("pages", pages).
		Int("size", len(content)).
		Msg("Build logs copied")

	return nil
}

func (b *Build) readLogs(ctx context.Context, group, stream string) (string, int, error) {
	paginator := cloudwatchlogs.NewFilterLogEventsPaginator(b.logs, &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName:   aws.String(group),
		LogStreamNames: []string{stream},
	})

	var sb strings.Builder
	pages := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			b.logger.Error().
				Err(err).
				Str("log_group", group).
				Str("log_stream", stream).
				Int("page", pages+1).
				Msg("Failed to read CloudWatch logs")
			return "", pages, fmt.Errorf("failed to read CloudWatch logs: %w", err)
		}
		pages++
		for _, event := range page.Events {
			sb.WriteString(aws.ToString(event.Message))
		}
	}
	return sb.String(), pages, nil
}

// LogsURL returns the URL the copied logs can be retrieved from
func (b *Build) LogsURL(ctx context.Context) (string, error) {
	key, err := b.LogsKey(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s?key=%s", b.logsEndpoint, url.QueryEscape(key)), nil
}
