package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"card-admin/internal/domain"
	"card-admin/internal/observability"
	"card-admin/internal/service"
)

// CardHandler serves the card endpoints. All routes sit behind RequireAuth.
type CardHandler struct {
	cardService *service.CardService
}

func NewCardHandler(cardService *service.CardService) *CardHandler {
	return &CardHandler{cardService: cardService}
}

// CreateCardResponse is returned when a card is stored
type CreateCardResponse struct {
	OK   bool         `json:"ok"`
	Card *domain.Card `json:"card"`
}

// Create validates the submitted fields and stores a new card
func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := decodeObject(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	card, err := h.cardService.Create(r.Context(), body)
	if err != nil {
		h.writeCardError(w, r, "create card", err)
		return
	}

	observability.FromContext(r.Context()).Info("card created",
		"card_id", card.ID,
		"category", card.Category)
	writeJSON(w, http.StatusOK, CreateCardResponse{OK: true, Card: card})
}

// Recent returns the newest cards. limit falls back to the default when it
// is missing or not a positive integer.
func (h *CardHandler) Recent(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cardService.Recent(r.Context(), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		h.writeCardError(w, r, "list recent cards", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(cards))
}

// List returns every card, newest first
func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cardService.All(r.Context())
	if err != nil {
		h.writeCardError(w, r, "list cards", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(cards))
}

// Get returns one card by id
func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	card, err := h.cardService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeCardError(w, r, "get card", err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *CardHandler) writeCardError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Message: validationMessage(verr),
			Errors:  verr.FieldMessages(),
		})
	case errors.Is(err, domain.ErrCardNotFound):
		writeError(w, http.StatusNotFound, "Card not found")
	default:
		observability.FromContext(r.Context()).Error("card storage failed",
			"operation", op,
			"error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// validationMessage summarises the first failing field for the form's
// notice; per-field detail travels in "errors".
func validationMessage(verr *domain.ValidationError) string {
	if len(verr.Fields) == 0 {
		return "Invalid card"
	}
	first := verr.Fields[0]
	switch first.Kind {
	case domain.KindBlank, domain.KindCustom:
		return first.Message
	default:
		return first.Field + ": " + first.Message
	}
}

// parseLimit reads a leading decimal integer like parseInt does and falls
// back to the default for anything that is not positive.
func parseLimit(raw string) int {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "+")
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil || n <= 0 {
		return domain.DefaultRecentLimit
	}
	return n
}

func nonNil(cards []*domain.Card) []*domain.Card {
	if cards == nil {
		return []*domain.Card{}
	}
	return cards
}
