package awsclient

import (
	"context"
	"fmt"

	"codebuild-logs/internal/config"
	"codebuild-logs/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/codebuild"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Clients bundles the service clients shared by every invocation
type Clients struct {
	CodeBuild *codebuild.Client
	Logs      *cloudwatchlogs.Client
	S3        *s3.Client
}

// LoadConfig loads the AWS configuration. Static credentials are used when
// both keys are set, otherwise the default chain (Lambda role, env, shared
// credentials file) applies.
func LoadConfig(ctx context.Context, cfg config.AWSConfig, logger *logger.Logger) (aws.Config, error) {
	if cfg.Region == "" {
		return aws.Config{}, fmt.Errorf("region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	static := cfg.AccessKey != "" && cfg.SecretKey != ""
	if static {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		logger.Error().
			Err(err).
			Str("region", cfg.Region).
			Msg("Failed to load AWS config")
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Debug().
		Str("region", cfg.Region).
		Bool("static_credentials", static).
		Msg("AWS config loaded")

	return awsCfg, nil
}

// New creates the CodeBuild, CloudWatch Logs and S3 clients from one config
func New(awsCfg aws.Config) *Clients {
	return &Clients{
		CodeBuild: codebuild.NewFromConfig(awsCfg),
		Logs:      cloudwatchlogs.NewFromConfig(awsCfg),
		S3:        s3.NewFromConfig(awsCfg),
	}
}
