// Package logger provides structured logging for the embedding service
// using zerolog.
//
// Loggers are created from Config and passed explicitly to the components
// that need them; a process-wide default exists for code that runs before
// configuration is loaded.
//
//	log := logger.New(&cfg.Logging, "embedding-service").WithComponent("api")
//	log.Info("embedding extracted", logger.Fields("dimension", 192))
package logger
