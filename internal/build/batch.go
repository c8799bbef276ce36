package build

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/codebuild"
	cbtypes "github.com/aws/aws-sdk-go-v2/service/codebuild/types"
)

// resolveBatch applies batch build semantics to snap. A build that is not
// part of a batch, or whose batch is not (yet) fully populated, is left as it
// is. Only a failing batch lookup is an error.
func (b *Build) resolveBatch(ctx context.Context, snap *snapshot) error {
	if snap.details.BuildBatchArn == "" {
		return nil
	}

	batchID, ok := batchIDFromArn(snap.details.BuildBatchArn)
	if !ok {
		b.logger.Debug().
			Str("build_batch_arn", snap.details.BuildBatchArn).
			Msg("Unrecognised build batch ARN")
		return nil
	}

	batch, ok, err := b.fetchBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if !ok || batch.SourceVersion == nil {
		return nil
	}

	// Batch items only carry the commit; the PR reference lives on the batch.
	snap.details.SourceVersion = aws.ToString(batch.SourceVersion)

	group, ok := findGroup(batch.BuildGroups, snap.details.Arn)
	if !ok || group.Identifier == nil {
		return nil
	}

	snap.groupIdentifier = aws.ToString(group.Identifier)
	snap.hasGroup = true
	// The event status is the batch status, which hides the item's own outcome.
	if status := group.CurrentBuildSummary.BuildStatus; status != "" {
		snap.status = string(status)
	}

	b.logger.Debug().
		Str("batch_id", batchID).
		Str("group_identifier", snap.groupIdentifier).
		Str("status", snap.status).
		Msg("Resolved batch build item")
	return nil
}

// fetchBatch describes the batch. A batch CodeBuild does not know is reported
// as not found; any other failure is returned.
func (b *Build) fetchBatch(ctx context.Context, batchID string) (cbtypes.BuildBatch, bool, error) {
	resp, err := b.codebuild.BatchGetBuildBatches(ctx, &codebuild.BatchGetBuildBatchesInput{
		Ids: []string{batchID},
	})
	if err != nil {
		var notFound *cbtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			b.logger.Debug().
				Err(err).
				Str("batch_id", batchID).
				Msg("Build batch not found, treating build as standalone")
			return cbtypes.BuildBatch{}, false, nil
		}
		b.logger.WithError(err).Error().
			Str("batch_id", batchID).
			Msg("Failed to get build batch")
		return cbtypes.BuildBatch{}, false, fmt.Errorf("failed to get build batch: %w", err)
	}

	if len(resp.BuildBatches) == 0 {
		b.logger.Debug().
			Str("batch_id", batchID).
			Msg("Build batch not found")
		return cbtypes.BuildBatch{}, false, nil
	}

	return resp.BuildBatches[0], true, nil
}

// batchIDFromArn returns the second "/" segment of a build batch ARN, the
// batch id after "build-batch/".
func batchIDFromArn(batchArn string) (string, bool) {
	resource := batchArn
	if parsed, err := arn.Parse(batchArn); err == nil {
		resource = parsed.Resource
	}
	parts := strings.Split(resource, "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// findGroup returns the first group whose current build is buildArn
func findGroup(groups []cbtypes.BuildGroup, buildArn string) (cbtypes.BuildGroup, bool) {
	for _, g := range groups {
		if g.CurrentBuildSummary == nil || g.CurrentBuildSummary.Arn == nil {
			continue
		}
		if aws.ToString(g.CurrentBuildSummary.Arn) == buildArn {
			return g, true
		}
	}
	return cbtypes.BuildGroup{}, false
}
