package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"agenda-agent/handler"
	"agenda-agent/internal/integrations/docgen"
	"agenda-agent/internal/integrations/hubmaster"
	"agenda-agent/internal/integrations/openai"
	"agenda-agent/internal/integrations/paramstore"
	"agenda-agent/internal/repository"
	"agenda-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	assistantID := mustEnv("DOC_ASSISTANT_ID")
	hubMasterBucket := mustEnv("HUB_MASTER_BUCKET")
	maxMessageLen := envInt("MAX_MESSAGE_LENGTH", 8000)
	idleMinutes := envInt("SESSION_IDLE_MINUTES", 10)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	stateClient, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable)
	if err != nil {
		slog.Error("failed to create state client", "err", err)
		os.Exit(1)
	}
	hubClient, err := hubmaster.New(awss3.NewFromConfig(cfg), hubMasterBucket)
	if err != nil {
		slog.Error("failed to create hub master client", "err", err)
		os.Exit(1)
	}
	openaiClient, err := openai.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}
	docgenClient, err := docgen.NewClient(ssmClient, paramPrefix, assistantID)
	if err != nil {
		slog.Error("failed to create docgen client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	converseService, err := usecase.NewConverseService(
		ssmClient, openaiClient, docgenClient, stateClient, hubClient,
		paramPrefix, maxMessageLen, time.Duration(idleMinutes)*time.Minute,
	)
	if err != nil {
		slog.Error("failed to create converse service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(converseService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
