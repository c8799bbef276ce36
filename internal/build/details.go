package build

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codebuild"
	cbtypes "github.com/aws/aws-sdk-go-v2/service/codebuild/types"
)

// Common errors
var (
	ErrInvalidEvent  = errors.New("invalid build event")
	ErrBuildNotFound = errors.New("build not found")
	ErrMissingCommit = errors.New("build has no resolved source version")
	ErrMissingLogs   = errors.New("build has no CloudWatch log stream")
)

// CodeBuildAPI is the subset of the CodeBuild client used to describe builds
type CodeBuildAPI interface {
	BatchGetBuilds(ctx context.Context, params *codebuild.BatchGetBuildsInput, optFns ...func(*codebuild.Options)) (*codebuild.BatchGetBuildsOutput, error)
	BatchGetBuildBatches(ctx context.Context, params *codebuild.BatchGetBuildBatchesInput, optFns ...func(*codebuild.Options)) (*codebuild.BatchGetBuildBatchesOutput, error)
}

// Details is the build record returned by CodeBuild. For batch items
// SourceVersion carries the batch's source version once resolved.
type Details struct {
	Arn                   string
	SourceVersion         string
	ResolvedSourceVersion string
	BuildBatchArn         string
	LogGroup              string
	LogStream             string
}

func detailsFromBuild(b cbtypes.Build) Details {
	d := Details{
		Arn:                   aws.ToString(b.Arn),
		SourceVersion:         aws.ToString(b.SourceVersion),
		ResolvedSourceVersion: aws.ToString(b.ResolvedSourceVersion),
		BuildBatchArn:         aws.ToString(b.BuildBatchArn),
	}
	if b.Logs != nil {
		d.LogGroup = aws.ToString(b.Logs.GroupName)
		d.LogStream = aws.ToString(b.Logs.StreamName)
	}
	return d
}

// fetchDetails describes the single build named by the event
func (b *Build) fetchDetails(ctx context.Context) (Details, error) {
	resp, err := b.codebuild.BatchGetBuilds(ctx, &codebuild.BatchGetBuildsInput{
		Ids: []string{b.ID},
	})
	if err != nil {
		b.logger.WithError(err).Error().
			Msg("Failed to get build details")
		return Details{}, fmt.Errorf("failed to get build details: %w", err)
	}

	if len(resp.Builds) == 0 {
		b.logger.Error().
			Strs("builds_not_found", resp.BuildsNotFound).
			Msg("No build found with the given ID")
		return Details{}, fmt.Errorf("%w: %s", ErrBuildNotFound, b.ID)
	}

	return detailsFromBuild(resp.Builds[0]), nil
}
