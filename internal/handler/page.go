package handler

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/pantry-tracker/internal/inventory"
	"github.com/vyrodovalexey/pantry-tracker/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(
	template.New("index.html").
		Funcs(template.FuncMap{"pathEscape": url.PathEscape}).
		ParseFS(templateFS, "templates/index.html"),
)

// rowAction is a controller operation applied to one item by name.
type rowAction func(ctx context.Context, name string) error

// pageView is the data rendered by the index template.
type pageView struct {
	Query string
	Items []model.InventoryItem
	Total int
	Form  inventory.Form
	Error string
}

// PageHandler serves the server-rendered pantry page.
type PageHandler struct {
	controller *inventory.Controller
	timeout    time.Duration
	logger     *zap.Logger
}

// NewPageHandler creates a new PageHandler instance.
func NewPageHandler(c *inventory.Controller, timeout time.Duration, logger *zap.Logger) *PageHandler {
	return &PageHandler{
		controller: c,
		timeout:    timeout,
		logger:     logger,
	}
}

// RegisterRoutes registers the page routes with the router.
func (h *PageHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Index).Methods(http.MethodGet)
	router.HandleFunc("/items", h.SaveForm).Methods(http.MethodPost)
	router.HandleFunc("/items/{name}/increment", h.Increment).Methods(http.MethodPost)
	router.HandleFunc("/items/{name}/decrement", h.Decrement).Methods(http.MethodPost)
	router.HandleFunc("/items/{name}/delete", h.Delete).Methods(http.MethodPost)
}

// Index handles GET / requests. It refreshes the mirror and renders the
// list filtered by q. form=add opens an empty modal; form=edit&name=X opens
// it pre-filled from X.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	// A failed refresh keeps the previous mirror and shows the banner.
	_ = h.controller.Refresh(ctx)

	params := r.URL.Query()
	view := h.view(params.Get("q"))

	switch params.Get("form") {
	case inventory.FormAdd.String():
		view.Form.OpenForAdd()
	case inventory.FormEdit.String():
		if item, ok := h.controller.Lookup(params.Get("name")); ok {
			view.Form.OpenForEdit(item)
		}
	}

	if err := h.controller.Err(); err != nil {
		_, view.Error = statusFor(err)
		h.logger.Warn("showing last inventory error", zap.Error(err))
	}

	h.render(w, http.StatusOK, view)
}

// SaveForm handles POST /items requests from the modal. A non-empty
// editing field selects edit mode and names the item to replace.
func (h *PageHandler) SaveForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("invalid form submission", zap.Error(err))
		view := h.view("")
		view.Error = "invalid form submission"
		h.render(w, http.StatusBadRequest, view)
		return
	}

	query := r.PostFormValue("q")
	form := formFromRequest(r)

	quantity, err := inventory.ParseQuantity(r.PostFormValue("quantity"))
	if err != nil {
		h.renderFailure(w, query, form, err)
		return
	}
	form.Quantity = quantity

	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	if err := h.controller.Save(ctx, &form); err != nil {
		h.renderFailure(w, query, form, err)
		return
	}

	h.redirect(w, r, query)
}

// Increment handles POST /items/{name}/increment requests.
func (h *PageHandler) Increment(w http.ResponseWriter, r *http.Request) {
	h.applyAction(w, r, h.controller.QuickIncrement)
}

// Decrement handles POST /items/{name}/decrement requests.
func (h *PageHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.applyAction(w, r, h.controller.Decrement)
}

// Delete handles POST /items/{name}/delete requests.
func (h *PageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.applyAction(w, r, h.controller.DeleteItem)
}

func (h *PageHandler) applyAction(w http.ResponseWriter, r *http.Request, action rowAction) {
	query := r.FormValue("q")

	ctx, cancel := requestContext(r, h.timeout)
	defer cancel()

	if err := action(ctx, itemName(r)); err != nil {
		h.renderFailure(w, query, inventory.Form{}, err)
		return
	}

	h.redirect(w, r, query)
}

func (h *PageHandler) view(query string) pageView {
	items := h.controller.Items()
	return pageView{
		Query: query,
		Items: inventory.Filter(items, query),
		Total: len(items),
	}
}

// renderFailure re-renders the page with the error banner and the form as
// submitted, so the user can correct it. Server-side failures show only the
// client-safe message; the cause is logged.
func (h *PageHandler) renderFailure(w http.ResponseWriter, query string, form inventory.Form, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("page action failed", zap.Error(err))
	} else {
		h.logger.Warn("page action rejected", zap.Error(err))
	}

	view := h.view(query)
	view.Form = form
	view.Error = message
	h.render(w, status, view)
}

func (h *PageHandler) render(w http.ResponseWriter, status int, view pageView) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		h.logger.Error("failed to render page", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("failed to write page", zap.Error(err))
	}
}

func (h *PageHandler) redirect(w http.ResponseWriter, r *http.Request, query string) {
	target := "/"
	if query != "" {
		target += "?" + url.Values{"q": {query}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// formFromRequest rebuilds the modal state from a submission.
func formFromRequest(r *http.Request) inventory.Form {
	form := inventory.Form{
		Mode:           inventory.FormAdd,
		Name:           r.PostFormValue("name"),
		Category:       r.PostFormValue("category"),
		ExpirationDate: r.PostFormValue("expirationDate"),
	}
	if editing := r.PostFormValue("editing"); editing != "" {
		form.Mode = inventory.FormEdit
		form.EditingTarget = editing
		form.Name = editing
	}
	return form
}

// itemName returns the unescaped {name} route variable.
func itemName(r *http.Request) string {
	name := mux.Vars(r)["name"]
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}
