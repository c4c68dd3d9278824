// internal/handlers/sync_handler.go
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"go_5_flash_keep/internal/config"
	"go_5_flash_keep/internal/model"
	"go_5_flash_keep/internal/service"
	"go_5_flash_keep/internal/webutil"
)

type SyncHandler struct {
	service service.SyncService
	cfg     *config.Config
	logger  *slog.Logger
}

func NewSyncHandler(s service.SyncService, cfg *config.Config, logger *slog.Logger) *SyncHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncHandler{
		service: s,
		cfg:     cfg,
		logger:  logger,
	}
}

// PostSync はオフラインで溜めた学習セッションのバッチを受け付けるためのハンドラ。
// エンベロープ（件数の上下限）だけはここで弾き、アイテム単位の検証は
// サービス側が結果として返す。バッチが処理されれば常に 200。
func (h *SyncHandler) PostSync(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostSync"))

	userID, ok := requireUserID(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	var req model.SyncRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}

	if len(req.Sessions) == 0 {
		logger.Warn("Sync batch rejected: empty sessions")
		appErr := model.NewAppError("EMPTY_SESSIONS", "同期するセッションがありません。", "sessions", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}
	if max := h.cfg.Sync.MaxBatchSessions; len(req.Sessions) > max {
		logger.Warn("Sync batch rejected: too many sessions", slog.Int("count", len(req.Sessions)))
		appErr := model.NewAppError("TOO_MANY_SESSIONS", fmt.Sprintf("一度に同期できるセッションは%d件までです。", max), "sessions", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	resp, err := h.service.SyncBatch(r.Context(), userID, &req)
	if err != nil {
		logger.Error("Sync batch failed", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, resp, logger)
}
