package www

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pstryklab/pstryk-go/config"
	"github.com/pstryklab/pstryk-go/coordinator"
	"github.com/pstryklab/pstryk-go/database"
	"github.com/pstryklab/pstryk-go/hours"
	"github.com/pstryklab/pstryk-go/logging"
	"github.com/pstryklab/pstryk-go/types"
)

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encoding response", slog.Any("error", err))
	}
}

func NewPricesHandler(logger *slog.Logger, coord *coordinator.Coordinator, direction string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := coord.Snapshot()
		var record types.PriceRecord
		switch direction {
		case "sell":
			record = snap.Sell
		default:
			record = snap.Buy
		}
		writeJSON(logger, w, http.StatusOK, record)
	}
}

func NewEnergyHandler(logger *slog.Logger, coord *coordinator.Coordinator, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := types.Resolution(r.URL.Query().Get("resolution"))
		if res == "" {
			res = types.ResolutionHour
		}
		if !res.Valid() {
			http.Error(w, "invalid resolution, expected hour, day or month", http.StatusBadRequest)
			return
		}

		snap := coord.Snapshot()
		var record types.EnergyRecord
		switch kind {
		case "cost":
			record = snap.Cost[res]
		default:
			record = snap.Usage[res]
		}
		writeJSON(logger, w, http.StatusOK, record)
	}
}

func NewMeterHandler(logger *slog.Logger, coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := coord.Snapshot()
		if snap.Meter == nil {
			http.Error(w, "no meter data", http.StatusNotFound)
			return
		}
		writeJSON(logger, w, http.StatusOK, snap.Meter)
	}
}

type statusResponse struct {
	LastSuccess bool   `json:"last_success"`
	HasData     bool   `json:"has_data"`
	UpdatedAt   string `json:"updated_at"`
	BuyFrames   int    `json:"buy_frames"`
	SellFrames  int    `json:"sell_frames"`
}

func NewStatusHandler(logger *slog.Logger, coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := coord.Snapshot()
		writeJSON(logger, w, http.StatusOK, statusResponse{
			LastSuccess: snap.LastSuccess,
			HasData:     coord.HasData(),
			UpdatedAt:   hours.FormatTimeInDisplayTimezone(snap.UpdatedAt),
			BuyFrames:   len(snap.Buy.Prices),
			SellFrames:  len(snap.Sell.Prices),
		})
	}
}

type logEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Attrs     string `json:"attrs,omitempty"`
}

// NewLogsHandler serves the persisted log, newest first. Supports
// ?level=, ?page= and ?page_size= query parameters.
func NewLogsHandler(logger *slog.Logger, db *database.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		page, _ := strconv.Atoi(q.Get("page"))
		if page < 1 {
			page = 1
		}
		pageSize, _ := strconv.Atoi(q.Get("page_size"))
		if pageSize < 1 {
			pageSize = 50
		}
		minLevel := slog.LevelInfo
		if s := q.Get("level"); s != "" {
			minLevel = logging.LevelFromString(&s)
		}

		rows, err := db.GetLogEntries(r.Context(), minLevel, page, pageSize)
		if err != nil {
			logger.Error("fetching log entries", slog.Any("error", err))
			http.Error(w, "failed to fetch log entries", http.StatusInternalServerError)
			return
		}

		entries := make([]logEntry, len(rows))
		for i, row := range rows {
			entries[i] = logEntry{
				Timestamp: row.Timestamp.Format(time.RFC3339),
				Level:     slog.Level(row.Level).String(),
				Message:   row.Message,
				Attrs:     row.Attrs,
			}
		}
		writeJSON(logger, w, http.StatusOK, entries)
	}
}

// NewDiagnosticsHandler dumps the effective configuration with credentials
// blanked out, for attaching to bug reports.
func NewDiagnosticsHandler(logger *slog.Logger, cnfg *config.AppConfig) http.HandlerFunc {
	const redacted = "**REDACTED**"
	return func(w http.ResponseWriter, r *http.Request) {
		safe := *cnfg
		if safe.Pstryk.ApiToken != "" {
			safe.Pstryk.ApiToken = redacted
		}
		if safe.Meter.Password != "" {
			safe.Meter.Password = redacted
		}
		writeJSON(logger, w, http.StatusOK, map[string]any{
			"config": safe,
		})
	}
}
