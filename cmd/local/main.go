// Local development server: the same converse use case behind a plain HTTP
// endpoint instead of Lambda. Reads AWS credentials and settings from .env.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"agenda-agent/internal/integrations/docgen"
	"agenda-agent/internal/integrations/hubmaster"
	"agenda-agent/internal/integrations/openai"
	"agenda-agent/internal/integrations/paramstore"
	"agenda-agent/internal/repository"
	"agenda-agent/internal/usecase"
)

type converseRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type converseResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"sessionId"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "err", err)
	}

	ctx := context.Background()

	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	assistantID := mustEnv("DOC_ASSISTANT_ID")
	hubMasterBucket := mustEnv("HUB_MASTER_BUCKET")
	addr := envOr("LISTEN_ADDR", ":3978")
	idleMinutes := envInt("SESSION_IDLE_MINUTES", 10)

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

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

	converseService, err := usecase.NewConverseService(
		ssmClient, openaiClient, docgenClient, stateClient, hubClient,
		paramPrefix, envInt("MAX_MESSAGE_LENGTH", 8000), time.Duration(idleMinutes)*time.Minute,
	)
	if err != nil {
		slog.Error("failed to create converse service", "err", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/converse", func(w http.ResponseWriter, req *http.Request) {
		var body converseRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": string(usecase.ErrorInvalidInput)})
			return
		}
		out, err := converseService.Converse(req.Context(), usecase.ConverseInput{
			Message:   body.Message,
			SessionID: body.SessionID,
		})
		if err != nil {
			status, code := statusFor(err)
			writeJSON(w, status, map[string]string{"error": code})
			return
		}
		writeJSON(w, http.StatusOK, converseResponse{Reply: out.Reply, SessionID: out.SessionID})
	})

	slog.Info("local converse server listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func statusFor(err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput, usecase.ErrorInvalidMessage:
		return http.StatusBadRequest, string(ucErr.Code)
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, string(ucErr.Code)
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, string(ucErr.Code)
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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
