// Copyright 2026 © The Troupe Authors
// SPDX-License-Identifier: Apache-2.0

// Command troupe runs a single agent invocation from the command line.
// It declares a demo TravelPlanner agent, sends the prompt given on the
// command line, executes any function call the model asks for, and
// prints the final reply.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aldasoro/troupe/pkg/agent"
	"github.com/aldasoro/troupe/pkg/config"
	"github.com/aldasoro/troupe/pkg/conversation"
	"github.com/aldasoro/troupe/pkg/core"
	"github.com/aldasoro/troupe/pkg/llm"
	"github.com/aldasoro/troupe/pkg/schema"
	"github.com/aldasoro/troupe/pkg/telemetry"
	"github.com/aldasoro/troupe/pkg/toolkit"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := flag.String("config", "", "path to a YAML config file")
	operation := flag.String("operation", "PlanTrip", "operation to invoke")
	mcpMode := flag.Bool("mcp", false, "serve the registered functions over MCP stdio")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("troupe", version)
		return
	}

	if *mcpMode {
		if err := runMCP(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	input := strings.Join(flag.Args(), " ")
	if input == "" {
		fmt.Fprintln(os.Stderr, "usage: troupe [flags] <prompt>")
		os.Exit(2)
	}

	if err := run(ctx, *configPath, *operation, input); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, operation, input string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.Init("troupe", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	directory := core.NewDirectory()
	if err := directory.RegisterRole("TravelPlanner", core.Role{
		Name:    "TravelPlanner",
		Persona: "You are an experienced travel planner who builds practical itineraries.",
	}); err != nil {
		return err
	}
	if err := directory.RegisterTask("TravelPlanner", "PlanTrip", core.Task{
		Instructions: "Plan a trip for the request below. Use the available functions to look up hotels and weather before answering.",
		Output:       core.OutputText,
	}); err != nil {
		return err
	}

	metrics, err := telemetry.NewChatMetrics(ctx)
	if err != nil {
		return err
	}

	registry := toolkit.NewRegistry(
		toolkit.WithGenerator(schema.NewReflector()),
		toolkit.WithLogger(logger),
		toolkit.WithMetrics(metrics),
	)
	if err := registerDemoFunctions(registry); err != nil {
		return err
	}

	opts := []agent.Option{
		agent.WithMetrics(metrics),
		agent.WithProvider(newProvider(cfg)),
		agent.WithDirectory(directory),
		agent.WithRegistry(registry),
		agent.WithModel(cfg.LLM.Model),
		agent.WithTemperature(cfg.LLM.Temperature),
		agent.WithLogger(logger),
	}

	if cfg.Archive.Enabled {
		db, err := sql.Open("sqlite", cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		archive, err := conversation.NewSQLiteArchive(db)
		if err != nil {
			return err
		}
		opts = append(opts, agent.WithArchive(archive))
	}

	proxy, err := agent.New("TravelPlanner", opts...)
	if err != nil {
		return err
	}

	reply, err := proxy.Invoke(ctx, operation, input)
	if err != nil {
		return err
	}

	// Run at most a few function-call rounds before settling on a reply.
	for round := 0; round < 4; round++ {
		call := toolkit.ParseCallEnvelope(reply)
		if call == nil {
			break
		}
		logger.Info("model requested function", "name", call.Name)
		if _, err := proxy.ExecuteCall(ctx, call); err != nil {
			return err
		}
		reply, err = proxy.Invoke(ctx, operation, "Continue with the function result above.")
		if err != nil {
			return err
		}
	}

	fmt.Println(reply)
	return nil
}

// runMCP publishes the demo functions as MCP tools over stdio, so editors
// and other MCP clients can call them without going through an agent.
func runMCP(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	registry := toolkit.NewRegistry(
		toolkit.WithGenerator(schema.NewReflector()),
		toolkit.WithLogger(logger),
	)
	if err := registerDemoFunctions(registry); err != nil {
		return err
	}

	logger.Info("serving MCP over stdio", "functions", registry.Len())
	return toolkit.NewMCPServer("troupe", version, registry).ServeStdio()
}

func newProvider(cfg *config.Config) llm.Provider {
	var opts []llm.OpenAIOption
	if cfg.LLM.Model != "" {
		opts = append(opts, llm.WithModel(cfg.LLM.Model))
	}
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, llm.WithBaseURL(cfg.LLM.BaseURL))
	}
	if cfg.LLM.APIKey != "" {
		opts = append(opts, llm.WithAPIKey(cfg.LLM.APIKey))
	}
	return llm.NewOpenAI(opts...)
}

func registerDemoFunctions(registry *toolkit.Registry) error {
	type hotelQuery struct {
		City   string `json:"city" jsonschema:"description=Destination city"`
		Nights int    `json:"nights" jsonschema:"description=Number of nights"`
	}
	if err := registry.RegisterShape("GetHotel", "Find a hotel in a city",
		func(_ context.Context, _, arguments string) (string, error) {
			return `{"hotel":"Grand Plaza","rating":4.5,"arguments":` + arguments + `}`, nil
		}, &hotelQuery{}); err != nil {
		return err
	}

	type weatherQuery struct {
		City string `json:"city" jsonschema:"description=City to check"`
	}
	return registry.RegisterShape("GetWeather", "Current weather for a city",
		func(_ context.Context, _, arguments string) (string, error) {
			return `{"forecast":"sunny","high_c":24}`, nil
		}, &weatherQuery{})
}
