package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	if a.stream != nil {
		err = a.stream.Close()
		if err != nil {
			a.logger.Error("order-stream-close-error", zap.Error(err))
		}
	}

	a.wg.Wait()
	a.closeResources()

	a.logger.Info("application-shutdown-complete")
	return nil
}

// Close releases resources without running the HTTP shutdown sequence. It is
// for callers that use the App's components but never call Run.
func (a *App) Close() {
	a.cancel()
	a.closeResources()
}

// closeResources releases connections opened by New. It tolerates a
// partially constructed App.
func (a *App) closeResources() {
	if a.store != nil {
		err := a.store.Close()
		if err != nil {
			a.logger.Error("storage-close-error", zap.Error(err))
		}
	}
	if a.eth != nil {
		a.eth.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
}
