package cli

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"brainoutai/internal/api"
	"brainoutai/internal/config"
	"brainoutai/internal/ingest"
	"brainoutai/internal/redis"
	"brainoutai/internal/service/ai"
	"brainoutai/internal/worker"
)

const defaultServerAddr = ":3001"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the BrainOutAI HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var cache *redis.Client
	if cfg.Redis.Host != "" {
		cache, err = redis.NewRedisClient(cfg)
		if err != nil {
			log.Printf("redis unavailable, response caching disabled: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	completer, err := ai.NewService(ctx, cfg, "")
	if err != nil {
		return err
	}
	log.Printf("completion provider: %s", completer.Provider())

	pool := worker.NewPool(worker.Config{
		MinWorkers:  cfg.BasicConfig.MinWorkers,
		MaxWorkers:  cfg.BasicConfig.MaxWorkers,
		QueueSize:   cfg.BasicConfig.QueueSize,
		IdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Minute,
	})

	loader, err := ingest.NewLoader(ctx)
	if err != nil {
		log.Printf("file ingestion unavailable, uploads use metadata only: %v", err)
		loader = nil
	}

	handler := api.NewHandler(completer, pool,
		cache, time.Duration(cfg.BasicConfig.CacheTTL)*time.Minute,
		loader, cfg.BasicConfig.UploadDir)

	router := gin.Default()
	handler.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = defaultServerAddr
	}
	log.Printf("🧠 BrainOutAI server running on %s", addr)
	return router.Run(addr)
}
