// Package httpserver runs the portal's HTTP server with graceful shutdown and
// provides liveness and readiness handlers.
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
//
// Run returns once ctx is cancelled and in-flight requests have drained or
// the shutdown timeout elapsed.
package httpserver
