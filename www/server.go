package www

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pstryklab/pstryk-go/config"
	"github.com/pstryklab/pstryk-go/coordinator"
	"github.com/pstryklab/pstryk-go/database"
	"github.com/pstryklab/pstryk-go/hours"
)

type Server struct {
	logger *slog.Logger
	config config.AppConfigApi
	coord  *coordinator.Coordinator
	hub    *Hub
}

func StartServer(db *database.Database, coord *coordinator.Coordinator, cnfg *config.AppConfig) *Server {
	logger := slog.Default().With("module", "www")

	s := &Server{
		logger: logger,
		config: cnfg.Api,
		coord:  coord,
		hub:    NewHub(logger),
	}

	go s.hub.Run()

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}

	http.Handle("/api/prices/buy", logReqMW(NewPricesHandler(
		logger.With(slog.String("handler", "prices_buy")), s.coord, "buy")))

	http.Handle("/api/prices/sell", logReqMW(NewPricesHandler(
		logger.With(slog.String("handler", "prices_sell")), s.coord, "sell")))

	http.Handle("/api/energy/usage", logReqMW(NewEnergyHandler(
		logger.With(slog.String("handler", "energy_usage")), s.coord, "usage")))

	http.Handle("/api/energy/cost", logReqMW(NewEnergyHandler(
		logger.With(slog.String("handler", "energy_cost")), s.coord, "cost")))

	http.Handle("/api/meter", logReqMW(NewMeterHandler(
		logger.With(slog.String("handler", "meter")), s.coord)))

	http.Handle("/api/status", logReqMW(NewStatusHandler(
		logger.With(slog.String("handler", "status")), s.coord)))

	http.Handle("/api/diagnostics", logReqMW(NewDiagnosticsHandler(
		logger.With(slog.String("handler", "diagnostics")), cnfg)))

	http.Handle("/api/logs", logReqMW(NewLogsHandler(
		logger.With(slog.String("handler", "logs")), db)))

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		s.hub.Register <- client
		go client.WritePump()
	})

	return s
}

type realTimeData struct {
	BuyPrice      *float64 `json:"buy_price"`
	SellPrice     *float64 `json:"sell_price"`
	IsCheap       bool     `json:"is_cheap"`
	IsExpensive   bool     `json:"is_expensive"`
	ActivePowerKW *float64 `json:"active_power_kw,omitempty"`
	LastSuccess   bool     `json:"last_success"`
	UpdatedAt     string   `json:"updated_at"`
}

func (s *Server) Run(ctx context.Context) {
	s.logger.Info("starting server...", "address", s.config.Address, "port", s.config.Port)
	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", s.config.Address, s.config.Port),
	}

	srvErrors := make(chan error, 1)

	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	ticker := time.NewTicker(time.Second * 2)
	defer ticker.Stop()

	// Keeping state to avoid spamming logs
	marshalErrorState := false

	for {
		select {
		case err := <-srvErrors:
			if err != nil {
				s.logger.Error("server error", slog.Any("error", err))
			}

		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			err := srv.Shutdown(shutdownCtx)
			if err != nil {
				s.logger.Error("server shutdown failed", slog.Any("error", err))
			}
			return

		case <-ticker.C:
			snap := s.coord.Snapshot()
			data := realTimeData{
				BuyPrice:    snap.Buy.CurrentPrice,
				SellPrice:   snap.Sell.CurrentPrice,
				IsCheap:     snap.Buy.IsCheap,
				IsExpensive: snap.Buy.IsExpensive,
				LastSuccess: snap.LastSuccess,
				UpdatedAt:   hours.FormatTimeInDisplayTimezone(snap.UpdatedAt),
			}
			if snap.Meter != nil {
				data.ActivePowerKW = &snap.Meter.ActivePowerKW
			}

			buf, err := json.Marshal(data)
			if err != nil {
				if !marshalErrorState {
					marshalErrorState = true
					s.logger.Error("real time data marshal failed", slog.Any("error", err))
				}
				continue
			}
			marshalErrorState = false

			s.hub.Broadcast <- buf
		}
	}
}
