package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"codebuild-logs/internal/api"
	"codebuild-logs/internal/api/handlers"
	"codebuild-logs/internal/awsclient"
	"codebuild-logs/internal/config"
	"codebuild-logs/internal/storage"
	"codebuild-logs/pkg/logger"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
)

func main() {
	local := flag.Bool("local", false, "serve over HTTP instead of running as a Lambda function")
	flag.Parse()

	if err := godotenv.Load(); err != nil && *local {
		log.Printf("Error loading .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	format := cfg.Log.Format
	if *local {
		format = "console"
	}
	logger := logger.NewLogger(&logger.Config{
		Level:     cfg.Log.Level,
		Format:    format,
		Output:    "stdout",
		AddCaller: true,
	})

	awsCfg, err := awsclient.LoadConfig(context.Background(), cfg.AWS, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load AWS config")
	}

	s3Client, err := storage.NewS3Client(awsclient.New(awsCfg).S3, cfg.Storage.Bucket, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create S3 client")
	}

	if !*local {
		lambda.Start(handlers.NewLogsHandlers(s3Client, logger).HandleAPIGateway)
		return
	}

	server := api.NewServer(&cfg.API, s3Client, logger)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info().Msg("Received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server startup failed")
	}
}
