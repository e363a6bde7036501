// Package logger provides the structured logging interface used across the
// skin scraper.
//
// It wraps zerolog with a small interface so components can take a Logger
// by injection and tests can substitute TestLogger or NewNopLogger.
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "crawler")
//	log.InfoWithFields("Listing page fetched", map[string]interface{}{
//	    "page":  3,
//	    "links": 24,
//	})
//
// Console output is colored unless NoColor is set. When a log file is
// configured, events go to both the console and the file.
package logger
