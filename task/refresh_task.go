package task

import (
	"context"
	"log/slog"

	"github.com/pstryklab/pstryk-go/config"
	"github.com/pstryklab/pstryk-go/coordinator"
)

func NewRefreshTask(logger *slog.Logger, coord *coordinator.Coordinator, cnfg config.AppConfigPstryk) func() {
	if !coord.HasData() {
		logger.Info("need an immediate refresh of pricing and energy data")
		runRefreshTask(logger, coord, cnfg)
	} else {
		logger.Debug("no need for immediate refresh, cached data present")
	}

	return func() { runRefreshTask(logger, coord, cnfg) }
}

func runRefreshTask(logger *slog.Logger, coord *coordinator.Coordinator, cnfg config.AppConfigPstryk) {
	logger.Debug("running refresh task...")

	ctx, cancel := context.WithTimeout(context.Background(), cnfg.GetTimeout()*8)
	defer cancel()

	coord.Refresh(ctx)

	snap := coord.Snapshot()
	if !snap.LastSuccess {
		logger.Warn("refresh task finished with upstream errors, serving cached data")
		return
	}

	logger.Info("refresh task done",
		slog.Int("buyFrames", len(snap.Buy.Prices)),
		slog.Int("sellFrames", len(snap.Sell.Prices)))
}
