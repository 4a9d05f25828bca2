// Package logger builds the process-wide *slog.Logger and provides the
// attribute helpers used across the session packages.
//
// Loggers are created with New and a set of options. WithEnvironment picks
// sensible defaults per deployment (text/debug locally, JSON/info elsewhere)
// and WithContextExtractors lets request-scoped values such as the request id
// be attached to every record without threading them through call sites.
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Parse(cfg.Env), "nectar"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
// Attribute helpers return an empty slog.Attr for nil or empty input, which
// slog drops, so callers can pass optional values unconditionally:
//
//	log.WarnContext(ctx, "session lookup failed",
//		logger.SessionID(id),
//		logger.Operation("get"),
//		logger.Error(err),
//	)
package logger
