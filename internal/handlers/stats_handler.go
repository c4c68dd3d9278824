// internal/handlers/stats_handler.go
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"go_5_flash_keep/internal/service"
	"go_5_flash_keep/internal/webutil"

	"go_5_flash_keep/internal/model"
)

type StatsHandler struct {
	service service.StatsService
	logger  *slog.Logger
}

func NewStatsHandler(s service.StatsService, logger *slog.Logger) *StatsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsHandler{
		service: s,
		logger:  logger,
	}
}

// GetOverview は学習統計のオーバービューを返すためのハンドラ。
// タイムゾーンはクエリパラメータで受け取り、省略時はUTC。
func (h *StatsHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetOverview"))

	userID, ok := requireUserID(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	loc := time.UTC
	if tz := r.URL.Query().Get("timezone"); tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			logger.Warn("Invalid timezone in query", slog.String("timezone", tz))
			webutil.RespondWithJSON(w, http.StatusBadRequest, model.InvalidTimezoneResponse{
				Error:        "Invalid timezone",
				ValidExample: "America/New_York",
			}, logger)
			return
		}
	}

	overview, err := h.service.GetOverview(r.Context(), userID, loc)
	if err != nil {
		logger.Error("Error building statistics overview", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, overview, logger)
}
