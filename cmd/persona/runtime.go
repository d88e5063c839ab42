package main

import (
	"context"
	"fmt"

	"persona/internal/agent"
	"persona/internal/capability"
	"persona/internal/capability/builtin"
	"persona/internal/genservice"
	"persona/internal/logging"
	"persona/internal/store"
	"persona/internal/synthesis"
)

// runtime holds every wired component of a running agent process.
type runtime struct {
	llm           genservice.Client
	registry      *capability.Registry
	pipeline      *synthesis.Pipeline
	conversations *store.ConversationStore
	characters    map[string]*store.Character
	watcher       *synthesis.Watcher
}

// buildRuntime wires the registry, synthesis pipeline, stores, and
// generation client from the loaded config. withLLM is false for
// offline commands (capability listing and deletion) that must work
// without an API key.
func buildRuntime(ctx context.Context, withLLM bool) (*runtime, error) {
	var llm genservice.Client
	if withLLM {
		var err error
		llm, err = genservice.NewGeminiClient(ctx, genservice.Params{
			APIKey:      cfg.Generation.APIKey,
			Model:       cfg.Generation.Model,
			Temperature: float32(cfg.Generation.Temperature),
			MaxTokens:   int32(cfg.Generation.MaxTokens),
			TopP:        float32(cfg.Generation.TopP),
		})
		if err != nil {
			return nil, err
		}
		// Durations were validated at config load.
		genTimeout, _ := cfg.GenerationTimeout()
		llm = genservice.WithTimeout(llm, genTimeout)
	}

	registry := capability.NewRegistry()
	builtin.RegisterAll(registry)

	ledger, err := synthesis.OpenLedger(cfg.Synthesis.LedgerPath)
	if err != nil {
		return nil, err
	}
	srcStore, err := synthesis.NewStore(cfg.Synthesis.CapabilitiesDir)
	if err != nil {
		return nil, err
	}
	loader := synthesis.NewYaegiLoader()
	loader.ExecTimeout, _ = cfg.ExecutionTimeout()
	pipeline := synthesis.NewPipeline(llm, registry, ledger, srcStore, loader)
	pipeline.SetEnabled(cfg.Synthesis.Enabled)
	pipeline.SetGenerationRetries(cfg.Synthesis.GenerationRetry)
	pipeline.ReloadPersisted()

	var watcher *synthesis.Watcher
	if cfg.Synthesis.WatchSource {
		watcher, err = synthesis.NewWatcher(pipeline)
		if err != nil {
			return nil, fmt.Errorf("failed to start source watcher: %w", err)
		}
	}

	conversations, err := store.Open(cfg.Chat.StorePath)
	if err != nil {
		return nil, err
	}
	characters, err := store.LoadCharacters(cfg.Chat.CharactersDir)
	if err != nil {
		return nil, err
	}

	logging.Get(logging.CategoryBoot).Infof("runtime ready: %d capabilities, %d characters",
		registry.Count(), len(characters))
	return &runtime{
		llm:           llm,
		registry:      registry,
		pipeline:      pipeline,
		conversations: conversations,
		characters:    characters,
		watcher:       watcher,
	}, nil
}

func (r *runtime) agentFor(character *store.Character) *agent.Agent {
	return agent.New(r.llm, r.registry, r.pipeline, character, cfg.Chat.MaxHistoryMessages)
}

func (r *runtime) close() {
	if r.watcher != nil {
		r.watcher.Close()
	}
	if r.conversations != nil {
		r.conversations.Close()
	}
}
