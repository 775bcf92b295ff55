package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = time.Minute
	limiterIdleTime = 3 * time.Minute
)

func (app *application) newServer() *http.Server {
	return &http.Server{
		Addr:              ":" + app.config.Port,
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// multipart uploads of up to MAX_UPLOAD_BYTES
		ReadTimeout:    time.Minute,
		WriteTimeout:   90 * time.Second,
		IdleTimeout:    2 * time.Minute,
		MaxHeaderBytes: 1 << 20,
		ErrorLog:       slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}
}

// serve runs the API until SIGINT or SIGTERM, then drains in-flight requests.
// TLS is used when both a certificate and a key are configured.
func (app *application) serve() error {
	srv := app.newServer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if app.config.LimiterEnabled {
		go app.sweepLimiter(ctx)
	}

	shutdownError := make(chan error, 1)
	go func() {
		<-ctx.Done()
		app.logger.Info("shutting down server", slog.String("addr", srv.Addr))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownError <- srv.Shutdown(shutdownCtx)
	}()

	tls := app.config.TLSCertFile != "" && app.config.TLSKeyFile != ""
	app.logger.Info("starting server",
		slog.String("addr", srv.Addr),
		slog.String("env", app.config.Environment),
		slog.Bool("tls", tls),
	)

	var err error
	if tls {
		err = srv.ListenAndServeTLS(app.config.TLSCertFile, app.config.TLSKeyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdownError; err != nil {
		return err
	}

	app.logger.Info("stopped server", slog.String("addr", srv.Addr))
	return nil
}

// sweepLimiter drops idle clients from the rate limiter until ctx is done.
func (app *application) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			app.limiter.sweep(limiterIdleTime)
		case <-ctx.Done():
			return
		}
	}
}
