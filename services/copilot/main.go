// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/schradermade/hvac-ai-sub000/pkg/logging"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/handlers"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/middleware"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/observability"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/routes"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/services"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/store"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/telemetry"
	"github.com/schradermade/hvac-ai-sub000/services/llm"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		// Tracing is optional for local field use.
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing export disabled")
		return func(context.Context) {}, nil
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("hvac-copilot-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// selectProvider picks the model backend from MODEL_BACKEND, falling back
// through the configured ones when unset.
func selectProvider() (llm.ModelProvider, error) {
	backend := os.Getenv("MODEL_BACKEND")
	switch backend {
	case "openai":
		slog.Info("Using OpenAI model backend")
		return llm.NewOpenAIProvider()
	case "ollama":
		slog.Info("Using Ollama model backend")
		return llm.NewOllamaProvider()
	case "":
		provider, err := llm.NewOpenAIProvider()
		if err == nil {
			slog.Info("Using OpenAI model backend")
			return provider, nil
		}
		if !errors.Is(err, llm.ErrNotConfigured) {
			return nil, err
		}
		ollama, err := llm.NewOllamaProvider()
		if err == nil {
			slog.Info("Using Ollama model backend")
			return ollama, nil
		}
		if !errors.Is(err, llm.ErrNotConfigured) {
			return nil, err
		}
		slog.Warn("No model backend configured, serving canned offline answers")
		return llm.OfflineProvider{}, nil
	default:
		slog.Warn("Unknown MODEL_BACKEND, defaulting to ollama", "backend", backend)
		return llm.NewOllamaProvider()
	}
}

func main() {
	port := os.Getenv("COPILOT_PORT")
	if port == "" {
		port = "12300"
	}

	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		LogDir:  os.Getenv("COPILOT_LOG_DIR"),
		Service: "copilot",
		JSON:    true,
	})
	defer logger.Close()
	logger.SetDefault()

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	provider, err := selectProvider()
	if err != nil {
		log.Fatalf("Failed to initialize model backend: %v", err)
	}

	dataDir := os.Getenv("COPILOT_DATA_DIR")
	var storeCfg store.Config
	if dataDir == "" {
		slog.Warn("COPILOT_DATA_DIR not set, conversation history will not survive restarts")
		storeCfg = store.InMemoryConfig()
	} else {
		storeCfg = store.DefaultConfig(dataDir)
	}
	turns, err := store.Open(storeCfg)
	if err != nil {
		log.Fatalf("Failed to open conversation store: %v", err)
	}
	defer store.Close(turns)

	sink := telemetry.Fanout{
		telemetry.LogSink{},
		observability.MetricsSink{Metrics: observability.DefaultMetrics},
	}
	service := services.NewAnswerService(provider, sink)

	router := gin.Default()
	router.Use(otelgin.Middleware("hvac-copilot-service"))

	routes.SetupRoutes(router, service, turns, handlers.StaticContextSource{}, middleware.NopValidator{})

	log.Println("Starting the copilot server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
