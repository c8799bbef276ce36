package build_test

import (
	"context"
	"errors"

	"codebuild-logs/internal/build"

	"github.com/aws/aws-sdk-go-v2/aws"
	cbtypes "github.com/aws/aws-sdk-go-v2/service/codebuild/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Build", func() {
	var (
		ctx   context.Context
		cb    *fakeCodeBuild
		event build.Event
	)

	BeforeEach(func() {
		ctx = context.Background()
		cb = &fakeCodeBuild{}
		event = build.Event{BuildID: buildArn, ProjectName: "app", BuildStatus: "FAILED"}
	})

	newBuild := func() *build.Build {
		return build.New(event, build.Clients{CodeBuild: cb}, "https://logs.example.com/buildlogs", nil)
	}

	Describe("Details", func() {
		It("fetches the build once", func() {
			cb.builds = []cbtypes.Build{standaloneBuild("pr/42")}
			b := newBuild()

			first, err := b.Details(ctx)
			Expect(err).NotTo(HaveOccurred())
			second, err := b.Details(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(first).To(Equal(second))
			Expect(cb.buildCalls).To(Equal(1))
		})

		It("shares the fetch across accessors", func() {
			cb.builds = []cbtypes.Build{standaloneBuild("pr/42")}
			b := newBuild()

			_, err := b.IsPRBuild(ctx)
			Expect(err).NotTo(HaveOccurred())
			_, err = b.CommitID(ctx)
			Expect(err).NotTo(HaveOccurred())
			_, err = b.Status(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(cb.buildCalls).To(Equal(1))
		})

		It("fails when no build matches", func() {
			b := newBuild()
			_, err := b.Details(ctx)
			Expect(err).To(MatchError(build.ErrBuildNotFound))
		})

		It("propagates service errors and retries on the next call", func() {
			cb.buildErr = errors.New("access denied")
			b := newBuild()

			_, err := b.Details(ctx)
			Expect(err).To(MatchError(ContainSubstring("access denied")))

			cb.buildErr = nil
			cb.builds = []cbtypes.Build{standaloneBuild("main")}
			_, err = b.Details(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(cb.buildCalls).To(Equal(2))
		})

		It("does not look up a batch for standalone builds", func() {
			cb.builds = []cbtypes.Build{standaloneBuild("pr/42")}
			_, err := newBuild().Details(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(cb.batchCalls).To(BeZero())
		})
	})

	DescribeTable("PRID",
		func(sourceVersion string, expectedID int, expectedPR bool) {
			cb.builds = []cbtypes.Build{standaloneBuild(sourceVersion)}
			b := newBuild()

			id, ok, err := b.PRID(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(Equal(expectedPR))
			Expect(id).To(Equal(expectedID))

			isPR, err := b.IsPRBuild(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(isPR).To(Equal(expectedPR))
		},
		Entry("pull request", "pr/42", 42, true),
		Entry("pull request with suffix", "pr/7/merge", 7, true),
		Entry("commit hash", "a1b2c3", 0, false),
		Entry("branch", "refs/heads/main", 0, false),
		Entry("pr not at start", "feature/pr/3", 0, false),
		Entry("pr without number", "pr/abc", 0, false),
		Entry("empty", "", 0, false),
	)

	Describe("CommitID", func() {
		It("returns the resolved source version", func() {
			cb.builds = []cbtypes.Build{standaloneBuild("pr/42")}
			commit, err := newBuild().CommitID(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(commit).To(Equal("a1b2c3d4"))
		})

		It("fails when the resolved source version is absent", func() {
			details := standaloneBuild("pr/42")
			details.ResolvedSourceVersion = nil
			cb.builds = []cbtypes.Build{details}

			_, err := newBuild().CommitID(ctx)
			Expect(err).To(MatchError(build.ErrMissingCommit))
		})
	})

	Describe("batch builds", func() {
		BeforeEach(func() {
			cb.builds = []cbtypes.Build{batchItem("a1b2c3d4")}
		})

		It("takes the PR reference from the batch", func() {
			cb.batches = []cbtypes.BuildBatch{{SourceVersion: aws.String("pr/7")}}
			b := newBuild()

			isPR, err := b.IsPRBuild(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(isPR).To(BeTrue())
			Expect(cb.batchIDsSeen).To(Equal([]string{"app:batch-1"}))

			details, err := b.Details(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(details.SourceVersion).To(Equal("pr/7"))
		})

		It("reports the item status instead of the batch status", func() {
			cb.batches = []cbtypes.BuildBatch{{
				SourceVersion: aws.String("pr/7"),
				BuildGroups: []cbtypes.BuildGroup{
					group("linux", "arn:aws:codebuild:us-east-1:123456789012:build/app:0002", cbtypes.StatusTypeFailed),
					group("windows", buildArn, cbtypes.StatusTypeSucceeded),
				},
			}}
			b := newBuild()

			status, err := b.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal("SUCCEEDED"))
			Expect(b.EventStatus).To(Equal("FAILED"))

			id, ok, err := b.GroupIdentifier(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal("windows"))
		})

		It("uses the first matching group", func() {
			cb.batches = []cbtypes.BuildBatch{{
				SourceVersion: aws.String("pr/7"),
				BuildGroups: []cbtypes.BuildGroup{
					group("first", buildArn, cbtypes.StatusTypeStopped),
					group("second", buildArn, cbtypes.StatusTypeSucceeded),
				},
			}}
			b := newBuild()

			id, _, err := b.GroupIdentifier(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("first"))
			Expect(b.Status(ctx)).To(Equal("STOPPED"))
		})

		It("resolves the batch only once", func() {
			cb.batches = []cbtypes.BuildBatch{{SourceVersion: aws.String("pr/7")}}
			b := newBuild()

			_, err := b.IsPRBuild(ctx)
			Expect(err).NotTo(HaveOccurred())
			_, err = b.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(cb.batchCalls).To(Equal(1))
		})

		DescribeTable("leaves the build untouched",
			func(setup func(*fakeCodeBuild), expectedSource string) {
				setup(cb)
				b := newBuild()

				status, err := b.Status(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(status).To(Equal("FAILED"))

				_, ok, err := b.GroupIdentifier(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())

				details, err := b.Details(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(details.SourceVersion).To(Equal(expectedSource))
			},
			Entry("batch not found", func(f *fakeCodeBuild) {
				f.batchErr = &cbtypes.ResourceNotFoundException{Message: aws.String("no such batch")}
			}, "a1b2c3d4"),
			Entry("no batches returned", func(f *fakeCodeBuild) {}, "a1b2c3d4"),
			Entry("batch without source version", func(f *fakeCodeBuild) {
				f.batches = []cbtypes.BuildBatch{{
					BuildGroups: []cbtypes.BuildGroup{group("linux", buildArn, cbtypes.StatusTypeSucceeded)},
				}}
			}, "a1b2c3d4"),
			Entry("batch without groups", func(f *fakeCodeBuild) {
				f.batches = []cbtypes.BuildBatch{{SourceVersion: aws.String("pr/7")}}
			}, "pr/7"),
			Entry("no group for this build", func(f *fakeCodeBuild) {
				f.batches = []cbtypes.BuildBatch{{
					SourceVersion: aws.String("pr/7"),
					BuildGroups: []cbtypes.BuildGroup{
						group("linux", "arn:aws:codebuild:us-east-1:123456789012:build/app:0002", cbtypes.StatusTypeSucceeded),
						{Identifier: aws.String("pending")},
					},
				}}
			}, "pr/7"),
			Entry("matching group without identifier", func(f *fakeCodeBuild) {
				f.batches = []cbtypes.BuildBatch{{
					SourceVersion: aws.String("pr/7"),
					BuildGroups:   []cbtypes.BuildGroup{group("", buildArn, cbtypes.StatusTypeSucceeded)},
				}}
			}, "pr/7"),
		)

		It("ignores a malformed batch ARN", func() {
			item := batchItem("a1b2c3d4")
			item.BuildBatchArn = aws.String("not-an-arn")
			cb.builds = []cbtypes.Build{item}

			status, err := newBuild().Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal("FAILED"))
			Expect(cb.batchCalls).To(BeZero())
		})

		It("reads the batch id from a bare resource path", func() {
			item := batchItem("a1b2c3d4")
			item.BuildBatchArn = aws.String("build-batch/app:batch-1")
			cb.builds = []cbtypes.Build{item}
			cb.batches = []cbtypes.BuildBatch{{SourceVersion: aws.String("pr/7")}}

			isPR, err := newBuild().IsPRBuild(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(isPR).To(BeTrue())
			Expect(cb.batchIDsSeen).To(Equal([]string{"app:batch-1"}))
		})

		Context("when the batch lookup fails", func() {
			BeforeEach(func() {
				cb.batchErr = errors.New("AccessDeniedException: not authorized to perform codebuild:BatchGetBuildBatches")
			})

			It("propagates the error instead of treating the build as standalone", func() {
				b := newBuild()

				_, err := b.IsPRBuild(ctx)
				Expect(err).To(MatchError(ContainSubstring("failed to get build batch")))
				Expect(err).To(MatchError(ContainSubstring("AccessDeniedException")))

				_, err = b.Status(ctx)
				Expect(err).To(HaveOccurred())
			})

			It("retries the resolution on the next call", func() {
				b := newBuild()
				_, err := b.Details(ctx)
				Expect(err).To(HaveOccurred())

				cb.batchErr = nil
				cb.batches = []cbtypes.BuildBatch{{SourceVersion: aws.String("pr/7")}}

				isPR, err := b.IsPRBuild(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(isPR).To(BeTrue())
				Expect(cb.buildCalls).To(Equal(2))
				Expect(cb.batchCalls).To(Equal(2))
			})
		})
	})
})
