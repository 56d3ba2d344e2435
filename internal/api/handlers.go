package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"lovelist/internal/logging"
	"lovelist/internal/model"
	"lovelist/internal/store"
)

// ItemHandler serves the item endpoints from a store.
type ItemHandler struct {
	store  *store.Store
	logger *slog.Logger
}

var _ ServerInterface = (*ItemHandler)(nil)

func NewItemHandler(s *store.Store, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{store: s, logger: logging.NewComponentLogger(logger, "api")}
}

// createItemRequest keeps raw fields so type errors map to field messages.
type createItemRequest struct {
	Text json.RawMessage `json:"text"`
}

type updateItemRequest struct {
	Text json.RawMessage `json:"text"`
	Done json.RawMessage `json:"done"`
}

func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request, params ListItemsParams) {
	filter := model.Filter{Done: params.Done}
	if params.Q != nil {
		filter.Query = *params.Q
	}
	writeJSON(w, http.StatusOK, h.store.List(filter))
}

func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	var text string
	if len(req.Text) == 0 || json.Unmarshal(req.Text, &text) != nil {
		writeError(w, http.StatusBadRequest, (&store.ValidationError{Field: "text"}).Error())
		return
	}

	item, err := h.store.Create(r.Context(), text)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request, id int64) {
	item, err := h.store.Get(id)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request, id int64) {
	var req updateItemRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if _, err := h.store.Get(id); err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	var patch store.Patch
	if len(req.Text) > 0 {
		var text string
		if isJSONNull(req.Text) || json.Unmarshal(req.Text, &text) != nil {
			writeError(w, http.StatusBadRequest, (&store.ValidationError{Field: "text"}).Error())
			return
		}
		patch.Text = &text
	}
	if len(req.Done) > 0 {
		var done bool
		if isJSONNull(req.Done) || json.Unmarshal(req.Done, &done) != nil {
			writeError(w, http.StatusBadRequest, (&store.ValidationError{Field: "done"}).Error())
			return
		}
		patch.Done = &done
	}

	item, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request, id int64) {
	item, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) ToggleAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.ToggleAll(r.Context())
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *ItemHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.ClearCompleted(r.Context())
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *ItemHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

func (h *ItemHandler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *store.ValidationError
	var perr *store.PersistError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.As(err, &perr):
		h.logger.Error("mutation not persisted",
			logging.Args(logging.Event("persist_failed"), logging.String("path", r.URL.Path), logging.Error(err))...)
		writeError(w, http.StatusInternalServerError, "Failed to persist items")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "Request cancelled before the change was persisted")
	default:
		h.logger.Error("unexpected store error", logging.Args(logging.Error(err))...)
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

func isJSONNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
