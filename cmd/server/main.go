package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"idverify/internal/extract"
	"idverify/internal/handlers"
	"idverify/internal/match"
	"idverify/internal/ocr"
	"idverify/internal/router"
	"idverify/internal/store"
	"idverify/internal/verification"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	st, err := store.New(log)
	if err != nil {
		log.Fatal("store init failed", zap.Error(err))
	}

	visionClient, err := ocr.NewVisionClient(ctx)
	if err != nil {
		log.Fatal("OCR init failed", zap.Error(err))
	}
	defer visionClient.Close()

	llmModel := os.Getenv("LLM_MODEL")
	if llmModel == "" {
		llmModel = "gemini-2.0-flash-lite"
	}
	gemini, err := extract.NewGeminiCompleter(ctx, os.Getenv("GEMINI_API_KEY"), llmModel)
	if err != nil {
		log.Fatal("Gemini init failed", zap.Error(err))
	}
	defer gemini.Close()

	extractor := extract.New(gemini, log,
		extract.WithTimeout(envDuration("LLM_TIMEOUT", 30*time.Second)))

	matcher := match.NewWithThreshold(envFloat("NAME_MATCH_THRESHOLD", match.DefaultNameThreshold))
	orch := verification.New(matcher)

	h := handlers.New(st, visionClient, extractor, orch, log)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info("listening", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, router.RegisterRouter(h, log)); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
