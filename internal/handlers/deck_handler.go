// internal/handlers/deck_handler.go
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

type DeckHandler struct {
	service service.DeckService
	logger  *slog.Logger
}

func NewDeckHandler(s service.DeckService, logger *slog.Logger) *DeckHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckHandler{
		service: s,
		logger:  logger,
	}
}

// PostDeck は新しいデッキを作成するためのハンドラ
func (h *DeckHandler) PostDeck(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostDeck"))

	userID, ok := requireUserID(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	var req model.CreateDeckRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}

	deck, err := h.service.CreateDeck(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			logger.Warn("Deck name already exists", slog.String("name", req.Name))
			appErr := model.NewAppError("DUPLICATE_DECK_NAME", "同じ名前のデッキが既に存在します。", "name", model.ErrConflict)
			webutil.HandleError(w, logger, appErr)
			return
		}
		logger.Error("Error creating deck in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Deck created successfully", slog.String("deck_id", deck.DeckID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, deck, logger)
}

// GetDecks はデッキの一覧を取得するためのハンドラ
func (h *DeckHandler) GetDecks(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetDecks"))

	userID, ok := requireUserID(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	decks, err := h.service.ListDecks(r.Context(), userID)
	if err != nil {
		logger.Error("Error listing decks in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if decks == nil {
		decks = []*model.Deck{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, decks, logger)
}

// GetDeck は特定のデッキを取得するためのハンドラ
func (h *DeckHandler) GetDeck(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetDeck"))

	userID, ok := requireUserID(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	deckID, ok := parseURLParamUUID(w, logger, "deck_id", chi.URLParam(r, "deck_id"))
	if !ok {
		return
	}

	deck, err := h.service.GetDeck(r.Context(), userID, deckID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Deck not found", slog.String("deck_id", deckID.String()))
		} else {
			logger.Error("Error getting deck from service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, deck, logger)
}

// PatchDeck はデッキの一部を更新するためのハンドラ
func (h *DeckHandler) PatchDeck(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PatchDeck"))

	userID, ok := requireUserID(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	deckID, ok := parseURLParamUUID(w, logger, "deck_id", chi.URLParam(r, "deck_id"))
	if !ok {
		return
	}

	var req model.UpdateDeckRequest
	if !decodeAndValidate(w, r, logger, &req) {
		return
	}

	if req.Name == nil && req.Description == nil {
		logger.Warn("PatchDeck called with no fields provided for update")
		appErr := model.NewAppError("VALIDATION_ERROR", "更新するフィールドが指定されていません。", "", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	deck, err := h.service.UpdateDeck(r.Context(), userID, deckID, &req)
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			appErr := model.NewAppError("DUPLICATE_DECK_NAME", "同じ名前のデッキが既に存在します。", "name", model.ErrConflict)
			webutil.HandleError(w, logger, appErr)
			return
		}
		logger.Error("Error updating deck in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Deck updated successfully", slog.String("deck_id", deckID.String()))
	webutil.RespondWithJSON(w, http.StatusOK, deck, logger)
}

// DeleteDeck はデッキ（と配下のカード）を削除するためのハンドラ
func (h *DeckHandler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteDeck"))

	userID, ok := requireUserID(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	deckID, ok := parseURLParamUUID(w, logger, "deck_id", chi.URLParam(r, "deck_id"))
	if !ok {
		return
	}

	if err := h.service.DeleteDeck(r.Context(), userID, deckID); err != nil {
		logger.Error("Error deleting deck in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Deck deleted successfully", slog.String("deck_id", deckID.String()))
	w.WriteHeader(http.StatusNoContent)
}
