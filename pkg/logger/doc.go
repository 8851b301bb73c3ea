// Package logger builds *slog.Logger instances for the portal.
//
// New takes functional options for format, level, static attributes and
// context extractors. Extractors run on every record, which is how request
// ids, tenant ids, user ids and roles placed in the request context by
// middleware end up on each log line without being passed around by hand.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "gpportal"),
//		logger.WithContextExtractors(requestid.LoggerExtractor(), tenant.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "subscription assigned", logger.TenantID(id), logger.PlanID("pro"))
//
// Attribute helpers in attr.go keep key names consistent across packages.
package logger
