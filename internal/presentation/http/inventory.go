package httppresentation

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type inventoryView struct {
	ID        string    `json:"id"`
	Stock     int       `json:"stock"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type setInventoryRequest struct {
	Stock int `json:"stock"`
}

func (h *Handler) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(actorOf(r)); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	rec, err := h.uc.Inventory.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inventoryView{ID: rec.ID, Stock: rec.Stock, UpdatedAt: rec.UpdatedAt})
}

func (h *Handler) handleSetInventory(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(actorOf(r)); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	var req setInventoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	rec, err := h.uc.Inventory.Set(r.Context(), chi.URLParam(r, "id"), req.Stock)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inventoryView{ID: rec.ID, Stock: rec.Stock, UpdatedAt: rec.UpdatedAt})
}
