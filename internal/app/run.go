package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.Float64("liquidity-b", a.cfg.TradeLiquidityB),
		zap.Float64("fee-rate", a.cfg.TradeFeeRate),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.Float64("balance", a.wallet.Balance()),
		zap.Int("markets", len(a.registry.List())))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	// Restore persisted portfolio state before accepting trades.
	err := a.restoreLedger(a.ctx)
	if err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}

	// Connect the simulated wallet.
	address, err := a.wallet.Connect(a.ctx)
	if err != nil {
		return fmt.Errorf("connect wallet: %w", err)
	}
	a.logger.Info("wallet-ready", zap.String("address", address.Hex()))

	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Start price stream hub
	a.wg.Add(1)
	go a.runHub()

	// Forward settled trades to the stream
	a.wg.Add(1)
	go a.forwardTradeUpdates()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runHub() {
	defer a.wg.Done()
	a.hub.Run(a.ctx)
}

// forwardTradeUpdates pushes a price snapshot to stream clients whenever a
// trade settles, so subscribers see price moves without waiting for the tick.
func (a *App) forwardTradeUpdates() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case update := <-a.executor.Updates():
			if update.Market != nil {
				a.hub.Broadcast(a.registry.List())
			}
		}
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
