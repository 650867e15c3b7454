// Package lambdaboot holds the Lambda cold-start helpers: AWS config, the
// provider API key from SSM, the S3 artifact store and the DynamoDB job
// store.
package lambdaboot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/chatcut/chatcut/internal/artifacts"
	"github.com/chatcut/chatcut/internal/auth"
	"github.com/chatcut/chatcut/internal/logging"
	"github.com/chatcut/chatcut/internal/store"
)

// ArtifactPrefix is the S3 key prefix for processed media.
const ArtifactPrefix = "processed"

// AWSClients holds the AWS SDK clients used by the Lambda.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// ParameterGetter is the subset of *ssm.Client used by LoadAPIKey.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// InitAWS loads the default AWS config and returns it with an SSM client.
func InitAWS(ctx context.Context) (AWSClients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return AWSClients{}, fmt.Errorf("load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{Config: cfg, SSM: ssm.NewFromConfig(cfg)}, nil
}

// DefaultKeyParam returns the SSM parameter name used when
// SSM_API_KEY_PARAM is unset.
func DefaultKeyParam(provider string) string {
	return "/chatcut/prod/" + provider + "-api-key"
}

// LoadAPIKey copies the provider's API key from SSM into its environment
// variable unless the variable is already set. Providers without API keys
// are skipped.
func LoadAPIKey(ctx context.Context, getter ParameterGetter, provider string) error {
	switch provider {
	case "gemini", "openai", "anthropic":
	default:
		return nil
	}
	envVar := auth.EnvVar(provider)
	if os.Getenv(envVar) != "" {
		return nil
	}
	paramName := logging.EnvOrDefault("SSM_API_KEY_PARAM", DefaultKeyParam(provider))

	start := time.Now()
	result, err := getter.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &paramName,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("read API key from SSM parameter %s: %w", paramName, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return fmt.Errorf("SSM parameter %s has no value", paramName)
	}
	if err := os.Setenv(envVar, *result.Parameter.Value); err != nil {
		return err
	}
	log.Debug().Str("param", paramName).Str("provider", provider).Dur("elapsed", time.Since(start)).Msg("API key loaded from SSM")
	return nil
}

// InitArtifactStore returns an S3 store for bucket with presigned download
// URLs.
func InitArtifactStore(cfg aws.Config, bucket string) *artifacts.S3Store {
	client := s3.NewFromConfig(cfg)
	return artifacts.NewS3Store(client, s3.NewPresignClient(client), bucket, ArtifactPrefix)
}

// InitMediaFetcher returns a fetcher that downloads s3:// media into /tmp.
func InitMediaFetcher(cfg aws.Config) *artifacts.S3Fetcher {
	return artifacts.NewS3Fetcher(s3.NewFromConfig(cfg), os.TempDir())
}

// InitJobStore returns a DynamoDB job store for table.
func InitJobStore(cfg aws.Config, table string) *store.DynamoStore {
	return store.NewDynamoStore(dynamodb.NewFromConfig(cfg), table)
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
