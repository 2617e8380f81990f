// Package gamemaster wires the game engine behind an MCP stdio server:
// config, storage backend, module catalog, narrator, and the autosave
// loop.
package gamemaster

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/tabletop.chat/internal/batch"
	"github.com/louisbranch/tabletop.chat/internal/engine"
	"github.com/louisbranch/tabletop.chat/internal/mcp"
	"github.com/louisbranch/tabletop.chat/internal/module"
	"github.com/louisbranch/tabletop.chat/internal/narrator"
	"github.com/louisbranch/tabletop.chat/internal/narrator/openai"
	"github.com/louisbranch/tabletop.chat/internal/platform/config"
	"github.com/louisbranch/tabletop.chat/internal/platform/otel"
	"github.com/louisbranch/tabletop.chat/internal/platform/timeouts"
	"github.com/louisbranch/tabletop.chat/internal/storage"
	"github.com/louisbranch/tabletop.chat/internal/storage/bolt"
	"github.com/louisbranch/tabletop.chat/internal/storage/sqlite"
)

// Version is stamped at build time.
var Version = "dev"

// Config holds gamemaster command configuration.
type Config struct {
	StorageDriver string `env:"TABLETOP_CHAT_STORAGE_DRIVER" envDefault:"sqlite"`
	StoragePath   string `env:"TABLETOP_CHAT_STORAGE_PATH"   envDefault:"tabletop.db"`
	ModulesDir    string `env:"TABLETOP_CHAT_MODULES_DIR"`

	OpenAIAPIKey string `env:"TABLETOP_CHAT_OPENAI_API_KEY"`
	OpenAIModel  string `env:"TABLETOP_CHAT_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIURL    string `env:"TABLETOP_CHAT_OPENAI_URL"`

	AutosaveInterval time.Duration `env:"TABLETOP_CHAT_AUTOSAVE_INTERVAL" envDefault:"300s"`
	CollectWindow    time.Duration `env:"TABLETOP_CHAT_COLLECT_WINDOW"    envDefault:"60s"`
	ExtraWait        time.Duration `env:"TABLETOP_CHAT_EXTRA_WAIT"        envDefault:"15s"`
	NarratorRetries  int           `env:"TABLETOP_CHAT_NARRATOR_RETRIES"  envDefault:"3"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.StorageDriver, "storage-driver", cfg.StorageDriver, "storage backend: sqlite or bolt")
	fs.StringVar(&cfg.StoragePath, "storage-path", cfg.StoragePath, "storage file path")
	fs.StringVar(&cfg.ModulesDir, "modules-dir", cfg.ModulesDir, "directory of Lua module scripts")
	fs.DurationVar(&cfg.AutosaveInterval, "autosave-interval", cfg.AutosaveInterval, "interval between autosave sweeps")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func openStore(cfg Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case "sqlite":
		return sqlite.Open(cfg.StoragePath)
	case "bolt":
		return bolt.Open(cfg.StoragePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func buildNarrator(cfg Config) (narrator.Narrator, error) {
	if cfg.OpenAIAPIKey == "" {
		log.Printf("gamemaster: no API key configured, using the static narrator")
		return narrator.Static{}, nil
	}
	return openai.New(openai.Config{
		ResponsesURL: cfg.OpenAIURL,
		APIKey:       cfg.OpenAIAPIKey,
		Model:        cfg.OpenAIModel,
	})
}

// Run starts the gamemaster process and blocks until ctx is cancelled
// or the MCP stream closes.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "gamemaster")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close storage: %v", err)
		}
	}()

	catalog := module.NewCatalog()
	if cfg.ModulesDir != "" {
		loaded, err := catalog.LoadLuaDir(cfg.ModulesDir)
		if err != nil {
			return fmt.Errorf("load modules: %w", err)
		}
		log.Printf("gamemaster: loaded %d Lua modules from %s", loaded, cfg.ModulesDir)
	}

	n, err := buildNarrator(cfg)
	if err != nil {
		return fmt.Errorf("build narrator: %w", err)
	}

	eng := engine.New(store, catalog, n, engine.Config{
		Batch: batch.Config{
			CollectWindow: cfg.CollectWindow,
			ExtraWait:     cfg.ExtraWait,
		},
		MaxRetries: cfg.NarratorRetries,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return mcp.NewServer(eng, Version).ServeStdio(gctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.AutosaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := eng.Autosave(gctx); err != nil {
					log.Printf("gamemaster: autosave: %v", err)
				}
			}
		}
	})

	err = g.Wait()
	if ctx.Err() != nil {
		err = nil
	}

	// Final sweep so nothing newer than the last autosave is lost.
	saveCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if saveErr := eng.Autosave(saveCtx); saveErr != nil {
		log.Printf("gamemaster: final autosave: %v", saveErr)
	}
	if closeErr := eng.Close(); closeErr != nil {
		log.Printf("gamemaster: engine close: %v", closeErr)
	}
	return err
}
