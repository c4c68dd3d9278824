// internal/handlers/study_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"go_5_flash_keep/internal/model"
	"go_5_flash_keep/internal/service"
	"go_5_flash_keep/internal/webutil"
)

type StudyHandler struct {
	service service.StudyService
	logger  *slog.Logger
}

func NewStudyHandler(s service.StudyService, logger *slog.Logger) *StudyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StudyHandler{
		service: s,
		logger:  logger,
	}
}

// PostReview はライブ学習中のカード評価を記録するためのハンドラ
func (h *StudyHandler) PostReview(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostReview"))

	userID, ok := requireUserID(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	var req model.ReviewRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}

	progress, err := h.service.RecordReview(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Card not found for review", slog.String("card_id", req.CardID.String()))
		} else {
			logger.Error("Error recording review in service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Review recorded",
		slog.String("card_id", req.CardID.String()),
		slog.String("mastery_level", string(progress.MasteryLevel)),
	)
	webutil.RespondWithJSON(w, http.StatusOK, progress, logger)
}

// PostSession はライブ学習セッションの完了を記録するためのハンドラ
func (h *StudyHandler) PostSession(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostSession"))

	userID, ok := requireUserID(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	var req model.SessionCompletionRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}

	session, err := h.service.CompleteSession(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Deck not found for session completion", slog.String("deck_id", req.DeckID.String()))
		} else {
			logger.Error("Error completing session in service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Session completed",
		slog.String("session_id", session.SessionID.String()),
		slog.Int("cards_studied", session.CardsStudied),
	)
	webutil.RespondWithJSON(w, http.StatusCreated, session, logger)
}
