// Package httpserver runs the HTTP ingress that receives payment provider
// webhooks, with graceful shutdown and health probes.
//
// Usage:
//
//	var cfg httpserver.Config
//	config.MustLoad(&cfg)
//
//	r := chi.NewRouter()
//	r.Mount("/billing", billingModule.Handle())
//	r.Get("/health", httpserver.Healthcheck(log, redisHealth, dbHealth))
//
//	srv := httpserver.New(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server exited", logger.Error(err))
//	}
package httpserver
