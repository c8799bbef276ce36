package main

import (
	"context"
	"log"

	"codebuild-logs/internal/awsclient"
	"codebuild-logs/internal/build"
	"codebuild-logs/internal/config"
	"codebuild-logs/internal/processor"
	"codebuild-logs/internal/storage"
	"codebuild-logs/pkg/logger"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
)

func main() {
	// .env is only present when running locally
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Processor.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := logger.NewLogger(&logger.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    "stdout",
		AddCaller: true,
	})

	awsCfg, err := awsclient.LoadConfig(context.Background(), cfg.AWS, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	clients := awsclient.New(awsCfg)

	s3Client, err := storage.NewS3Client(clients.S3, cfg.Storage.Bucket, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create S3 client")
	}

	p := processor.New(build.Clients{
		CodeBuild: clients.CodeBuild,
		Logs:      clients.Logs,
		Storage:   s3Client,
	}, cfg.Processor, logger)

	lambda.Start(p.Handle)
}
