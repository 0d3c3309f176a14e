package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/pantry-tracker/internal/inventory"
	"github.com/vyrodovalexey/pantry-tracker/internal/model"
)

// RESTHandler exposes the inventory controller as a JSON API.
type RESTHandler struct {
	controller *inventory.Controller
	timeout    time.Duration
	logger     *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance.
func NewRESTHandler(c *inventory.Controller, timeout time.Duration, logger *zap.Logger) *RESTHandler {
	return &RESTHandler{
		controller: c,
		timeout:    timeout,
		logger:     logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/items", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items", h.AddItem).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/items/{name}", h.GetItem).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items/{name}", h.EditItem).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/items/{name}", h.DeleteItem).Methods(http.MethodDelete)
	router.HandleFunc("/api/v1/items/{name}/increment", h.IncrementItem).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/items/{name}/decrement", h.DecrementItem).Methods(http.MethodPost)
}

// ListItems handles GET /api/v1/items requests. The optional q parameter
// filters by name.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	if err := h.controller.Refresh(ctx); err != nil {
		h.handleError(w, err, inventory.OpRefresh)
		return
	}

	items := h.controller.Search(r.URL.Query().Get("q"))
	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(items))
}

// GetItem handles GET /api/v1/items/{name} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()
	name := itemName(r)

	if err := h.controller.Refresh(ctx); err != nil {
		h.handleError(w, err, inventory.OpRefresh)
		return
	}

	item, ok := h.controller.Lookup(name)
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "item not found")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(item))
}

// AddItem handles POST /api/v1/items requests. The quantity is merged into
// an existing item of the same name.
func (h *RESTHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var input model.InventoryItem
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	if err := h.controller.Add(ctx, input.Name, input.Category, input.ExpirationDate, input.Quantity); err != nil {
		h.handleError(w, err, inventory.OpAdd)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(h.controller.Items()))
}

// EditItem handles PUT /api/v1/items/{name} requests. The document stored
// under the path name is replaced; a name in the body is ignored.
func (h *RESTHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	name := itemName(r)

	var input model.InventoryItem
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	input.Name = name

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	if err := h.controller.Edit(ctx, name, input.Category, input.ExpirationDate, input.Quantity); err != nil {
		h.handleError(w, err, inventory.OpEdit)
		return
	}

	item, ok := h.controller.Lookup(name)
	if !ok {
		item = input
	}
	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(item))
}

// IncrementItem handles POST /api/v1/items/{name}/increment requests.
func (h *RESTHandler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	h.applyAction(w, r, inventory.OpIncrement, h.controller.QuickIncrement)
}

// DecrementItem handles POST /api/v1/items/{name}/decrement requests.
func (h *RESTHandler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.applyAction(w, r, inventory.OpDecrement, h.controller.Decrement)
}

// DeleteItem handles DELETE /api/v1/items/{name} requests. Deleting an
// absent item succeeds.
func (h *RESTHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	if err := h.controller.DeleteItem(ctx, itemName(r)); err != nil {
		h.handleError(w, err, inventory.OpDelete)
		return
	}

	writeJSON(w, h.logger, http.StatusNoContent, nil)
}

func (h *RESTHandler) applyAction(w http.ResponseWriter, r *http.Request, op string, action rowAction) {
	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	if err := action(ctx, itemName(r)); err != nil {
		h.handleError(w, err, op)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(h.controller.Items()))
}

// handleError writes the response for a failed controller call.
func (h *RESTHandler) handleError(w http.ResponseWriter, err error, operation string) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("inventory operation failed", zap.String("operation", operation), zap.Error(err))
	} else {
		h.logger.Warn("inventory request rejected", zap.String("operation", operation), zap.Error(err))
	}
	writeError(w, h.logger, status, message)
}
