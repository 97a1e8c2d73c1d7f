package task

import (
	"context"
	"log/slog"

	"github.com/pstryklab/pstryk-go/config"
	"github.com/pstryklab/pstryk-go/coordinator"
	"github.com/pstryklab/pstryk-go/database"
	"github.com/robfig/cron/v3"
)

type Tasks struct {
	cron            *cron.Cron
	cnfg            *config.AppConfig
	RefreshTask     func()
	MaintenanceTask func()
}

func NewTasks(db *database.Database, coord *coordinator.Coordinator, cnfg *config.AppConfig) *Tasks {
	logger := slog.Default().With("module", "tasks")
	return &Tasks{
		cron:            cron.New(),
		cnfg:            cnfg,
		RefreshTask:     NewRefreshTask(logger.With(slog.String("task", "refresh")), coord, cnfg.Pstryk),
		MaintenanceTask: NewMaintenanceTask(logger.With(slog.String("task", "maintenance")), db, cnfg),
	}
}

func (t *Tasks) Run() {
	_, err := t.cron.AddFunc(t.cnfg.Pstryk.GetRunAt(), t.RefreshTask)
	if err != nil {
		panic(err)
	}
	_, err = t.cron.AddFunc("30 2 * * *", t.MaintenanceTask)
	if err != nil {
		panic(err)
	}
	t.cron.Start()
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}
