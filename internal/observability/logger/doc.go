// Package logger provides a singleton zap logger with context-based scoping.
//
// Initialize once in main:
//
//	logger.Init(logger.Config{
//	    Env:   os.Getenv("APP_ENV"),   // "dev" or "prod"
//	    Level: os.Getenv("LOG_LEVEL"), // "debug", "info", "warn", "error"
//	})
//	defer logger.L().Sync()
//
// In services (with a context):
//
//	log := logger.From(ctx)
//	log.Info("dispatching", logger.Account(addr), logger.Count(n))
//
// Without a context (singleton fallback):
//
//	logger.L().Info("notifier started")
package logger
