package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planweave/planweave/internal/config"
	"github.com/planweave/planweave/internal/hierarchy"
	"github.com/planweave/planweave/internal/pipeline"
	"github.com/planweave/planweave/internal/provider"
	"github.com/planweave/planweave/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "planweave",
	Short: "Requirements document planning engine",
	Long: `Planweave turns raw requirements documents into structured work item
hierarchies: epics, stories, tasks, and subtasks.

Documents are processed in two AI passes (consolidate into epics, then break
each epic down), reconciled into a complete parent-linked tree, and persisted
to a local SQLite database.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// openStore opens and migrates the configured database.
func openStore(cfg *config.Config) (*store.DB, error) {
	path := cfg.Storage.DBPath
	if path == "" {
		path = store.DefaultDBPath()
	}

	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// buildGenerator wires the provider fallback chain from configuration.
func buildGenerator(cfg *config.Config) (*provider.Orchestrator, error) {
	apiKey := ""
	if !cfg.AWS.UseBedrock {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w\n\nSet ANTHROPIC_API_KEY or run 'planweave config set-key'", err)
		}
		apiKey = key
	}

	client, err := provider.NewClient(provider.ClientConfig{
		APIKey:        apiKey,
		UseAWSBedrock: cfg.AWS.UseBedrock,
		AWSRegion:     cfg.AWS.Region,
		AWSProfile:    cfg.AWS.Profile,
	})
	if err != nil {
		return nil, fmt.Errorf("create provider client: %w", err)
	}

	providerName := "anthropic"
	if cfg.AWS.UseBedrock {
		providerName = "bedrock"
	}

	return provider.NewOrchestrator(provider.ClientCandidates(client, providerName)...), nil
}

// buildPipeline assembles a Pipeline from configuration and CLI overrides.
func buildPipeline(cfg *config.Config, db *store.DB, minimal bool, registryPath string) (*pipeline.Pipeline, error) {
	gen, err := buildGenerator(cfg)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{Minimal: minimal || cfg.Pipeline.Minimal}

	if registryPath == "" {
		registryPath = cfg.Pipeline.RegistryPath
	}
	if registryPath != "" {
		registry, err := hierarchy.LoadRegistry(registryPath)
		if err != nil {
			return nil, fmt.Errorf("load category registry: %w", err)
		}
		opts.Registry = &registry
	}

	if cfg.Pipeline.DebugLogPath != "" {
		logger, err := pipeline.NewDebugLogger(cfg.Pipeline.DebugLogPath)
		if err != nil {
			return nil, fmt.Errorf("open debug log: %w", err)
		}
		opts.Logger = logger
	}

	return pipeline.New(gen, db, opts), nil
}
