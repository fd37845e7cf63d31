// Package logging builds the broker's zap logger.
//
// Production logs are JSON; development logs are colored console lines.
// Components receive the plain *zap.Logger and name themselves:
//
//	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
//	defer logger.Close()
//
//	svc, err := caraudio.New(caraudio.Options{Logger: logger.Logger})
//	// logs as "caraudio", its arbitrators as "caraudio.focus"
//
// The level can be changed at runtime with SetLevel.
package logging
