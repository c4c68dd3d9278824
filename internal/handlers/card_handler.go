// internal/handlers/card_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"go_5_flash_keep/internal/model"
	"go_5_flash_keep/internal/service"
	"go_5_flash_keep/internal/webutil"

	"github.com/go-chi/chi/v5"
)

type CardHandler struct {
	service service.CardService
	logger  *slog.Logger
}

func NewCardHandler(s service.CardService, logger *slog.Logger) *CardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CardHandler{
		service: s,
		logger:  logger,
	}
}

// PostCard はデッキに新しいカードを追加するためのハンドラ
func (h *CardHandler) PostCard(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostCard"))

	userID, ok := requireUserID(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	deckID, ok := parseURLParamUUID(w, logger, "deck_id", chi.URLParam(r, "deck_id"))
	if !ok {
		return
	}

	var req model.CreateCardRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}

	card, err := h.service.CreateCard(r.Context(), userID, deckID, &req)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Deck not found for card creation", slog.String("deck_id", deckID.String()))
		} else {
			logger.Error("Error creating card in service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Card created successfully", slog.String("card_id", card.CardID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, card, logger)
}

// GetCards はデッキ内のカード一覧を取得するためのハンドラ
func (h *CardHandler) GetCards(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetCards"))

	userID, ok := requireUserID(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	deckID, ok := parseURLParamUUID(w, logger, "deck_id", chi.URLParam(r, "deck_id"))
	if !ok {
		return
	}

	cards, err := h.service.ListCards(r.Context(), userID, deckID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Deck not found for card listing", slog.String("deck_id", deckID.String()))
		} else {
			logger.Error("Error listing cards in service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	if cards == nil {
		cards = []*model.Card{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, cards, logger)
}

// GetCard は特定のカードを取得するためのハンドラ
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetCard"))

	userID, ok := requireUserID(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	cardID, ok := parseURLParamUUID(w, logger, "card_id", chi.URLParam(r, "card_id"))
	if !ok {
		return
	}

	card, err := h.service.GetCard(r.Context(), userID, cardID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Card not found", slog.String("card_id", cardID.String()))
		} else {
			logger.Error("Error getting card from service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, card, logger)
}

// PatchCard はカードの一部を更新するためのハンドラ
func (h *CardHandler) PatchCard(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PatchCard"))

	userID, ok := requireUserID(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	cardID, ok := parseURLParamUUID(w, logger, "card_id", chi.URLParam(r, "card_id"))
	if !ok {
		return
	}

	var req model.UpdateCardRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}

	if req.Front == nil && req.Back == nil {
		logger.Warn("PatchCard called with no fields provided for update")
		appErr := model.NewAppError("VALIDATION_ERROR", "更新するフィールドが指定されていません。", "", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	card, err := h.service.UpdateCard(r.Context(), userID, cardID, &req)
	if err != nil {
		logger.Error("Error updating card in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Card updated successfully", slog.String("card_id", cardID.String()))
	webutil.RespondWithJSON(w, http.StatusOK, card, logger)
}

// DeleteCard はカードを削除するためのハンドラ
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteCard"))

	userID, ok := requireUserID(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	cardID, ok := parseURLParamUUID(w, logger, "card_id", chi.URLParam(r, "card_id"))
	if !ok {
		return
	}

	if err := h.service.DeleteCard(r.Context(), userID, cardID); err != nil {
		logger.Error("Error deleting card in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Card deleted successfully", slog.String("card_id", cardID.String()))
	w.WriteHeader(http.StatusNoContent)
}
