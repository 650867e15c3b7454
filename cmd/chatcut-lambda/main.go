// Command chatcut-lambda serves the ChatCut HTTP API from AWS Lambda behind
// API Gateway (HTTP API, payload v2).
//
// The provider API key is read from SSM Parameter Store when its environment
// variable is unset. Processed media from the video worker is uploaded to
// CHATCUT_OUTPUT_BUCKET when set, and process-media outcomes are recorded in
// the CHATCUT_JOBS_TABLE DynamoDB table when set.
package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/chatcut/chatcut/internal/ai"
	"github.com/chatcut/chatcut/internal/api"
	"github.com/chatcut/chatcut/internal/artifacts"
	"github.com/chatcut/chatcut/internal/config"
	"github.com/chatcut/chatcut/internal/lambdaboot"
	"github.com/chatcut/chatcut/internal/logging"
	"github.com/chatcut/chatcut/internal/service"
)

var (
	version    = "dev"
	commitHash = ""
)

var handler *httpadapter.HandlerAdapterV2

func init() {
	initStart := time.Now()
	ctx := context.Background()

	settings, err := config.FromEnv()
	if err != nil {
		logging.Init(logging.Options{JSON: true})
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Init(logging.Options{Level: settings.Log.Level, JSON: true})

	aws, err := lambdaboot.InitAWS(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize AWS")
	}
	if err := lambdaboot.LoadAPIKey(ctx, aws.SSM, settings.Provider); err != nil {
		log.Fatal().Err(err).Msg("Failed to load provider API key")
	}
	// Re-read so the key fetched from SSM is picked up.
	if settings, err = config.FromEnv(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	var output artifacts.Store
	if settings.Output.Bucket != "" {
		output = lambdaboot.InitArtifactStore(aws.Config, settings.Output.Bucket)
	} else {
		// /tmp is the only writable path on Lambda.
		output = artifacts.NewLocalStore("/tmp/chatcut-output")
	}

	svc := service.New(ai.New(settings, output), nil)
	// Lambda cannot see caller paths, so media is referenced by s3:// URI.
	server := api.New(svc, version).WithMediaFetcher(lambdaboot.InitMediaFetcher(aws.Config))
	if settings.Output.JobsTable != "" {
		server.WithJobStore(lambdaboot.InitJobStore(aws.Config, settings.Output.JobsTable))
	}
	handler = httpadapter.NewV2(server.Handler())

	info := svc.ProviderInfo()
	lambdaboot.StartupLog("chatcut-lambda", initStart).
		Version(version).
		CommitHash(commitHash).
		Resource("outputBucket", settings.Output.Bucket).
		Resource("jobsTable", settings.Output.JobsTable).
		Resource("ssmKeyParam", logging.EnvOrDefault("SSM_API_KEY_PARAM", lambdaboot.DefaultKeyParam(settings.Provider))).
		Config("provider", info.Name).
		Feature("providerConfigured", info.Configured).
		Log()
}

func main() {
	lambda.Start(handler.ProxyWithContext)
}
