// Package logger builds *slog.Logger instances for the service and provides
// attribute constructors so that field names stay consistent across packages.
//
// New wraps the selected slog handler in a LogHandlerDecorator, which runs
// registered ContextExtractor callbacks on every record. This is how values
// such as the request id travel from an HTTP request into log output without
// threading a logger through every call.
//
//	log := logger.New(
//		logger.WithEnvironment("production", "authsvc"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "user signed up", logger.UserID(id))
package logger
