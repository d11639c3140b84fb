// Package app wires the simulator together and owns its lifecycle.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/forecastd/forecastd/internal/engine"
	"github.com/forecastd/forecastd/internal/ledger"
	"github.com/forecastd/forecastd/internal/market"
	"github.com/forecastd/forecastd/internal/storage"
	"github.com/forecastd/forecastd/internal/synthetic"
	"github.com/forecastd/forecastd/pkg/cache"
	"github.com/forecastd/forecastd/pkg/config"
	"github.com/forecastd/forecastd/pkg/healthprobe"
	"github.com/forecastd/forecastd/pkg/httpserver"
	"github.com/forecastd/forecastd/pkg/stream"
	"github.com/forecastd/forecastd/pkg/wallet"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	registry      *market.Registry
	executor      *engine.Executor
	ledger        *ledger.Ledger
	wallet        *wallet.Wallet
	store         storage.Store
	dataCache     cache.Cache
	generator     *synthetic.Generator
	hub           *stream.Hub
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
