package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/api"
	"github.com/fleetwatch/fleetwatch/internal/database"
	"github.com/fleetwatch/fleetwatch/internal/middleware"
	"github.com/fleetwatch/fleetwatch/internal/notify"
)

// TicketHandler handles ticket CRUD and comments. Every successful
// mutation feeds the change-debounce engine.
type TicketHandler struct {
	db     *gorm.DB
	engine *notify.Engine
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(db *gorm.DB, engine *notify.Engine) *TicketHandler {
	return &TicketHandler{db: db, engine: engine}
}

// SetupRoutes sets up ticket routes
func (h *TicketHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/tickets", h.handleCollection)
	mux.HandleFunc("/api/tickets/", h.handleItem)
}

// handleCollection handles GET (list) and POST (create) on /api/tickets
func (h *TicketHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleItem routes /api/tickets/{uuid} and /api/tickets/{uuid}/comments
func (h *TicketHandler) handleItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tickets/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, parts[0])
		case http.MethodPut:
			h.handleUpdate(w, r, parts[0])
		default:
			api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	case len(parts) == 2 && parts[1] == "comments":
		if r.Method != http.MethodPost {
			api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.handleComment(w, r, parts[0])
	default:
		api.RespondError(w, http.StatusNotFound, "Not found")
	}
}

// handleList handles GET /api/tickets
func (h *TicketHandler) handleList(w http.ResponseWriter, r *http.Request) {
	p := api.ParsePagination(r)

	query := h.db.Model(&database.Ticket{})
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if server := r.URL.Query().Get("server"); server != "" {
		query = query.Where("server = ?", server)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to count tickets")
		return
	}

	var tickets []database.Ticket
	if err := query.Order("modified DESC").Offset(p.Offset()).Limit(p.PerPage).Find(&tickets).Error; err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to list tickets")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.PaginatedResponse{
		Data: tickets,
		Pagination: api.PaginationMeta{
			Page:       p.Page,
			PerPage:    p.PerPage,
			Total:      total,
			TotalPages: p.TotalPages(total),
		},
	})
}

// handleCreate handles POST /api/tickets
func (h *TicketHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTicketRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := api.Validate(req); errs != nil {
		api.RespondValidationError(w, errs)
		return
	}

	status := database.TicketStatus(req.Status)
	if status == "" {
		status = database.TicketStatusOpen
	}

	username := middleware.GetUserFromContext(r.Context())
	ticket := database.Ticket{
		UUID:      uuid.New().String(),
		Subject:   req.Subject,
		Body:      req.Body,
		Type:      req.Type,
		Category:  req.Category,
		Server:    req.Server,
		Status:    status,
		Assignee:  req.Assignee,
		Due:       req.Due,
		Cc:        req.Cc,
		Notify:    req.Notify,
		Tags:      req.Tags,
		CreatedBy: username,
	}

	if err := h.db.Create(&ticket).Error; err != nil {
		log.Printf("TicketHandler: failed to create ticket: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to create ticket")
		return
	}

	// Creation diffs against a zero ticket; drafts stay silent
	h.engine.RecordTicketChange(&database.Ticket{}, &ticket, username)

	api.RespondJSON(w, http.StatusCreated, ticket)
}

// handleGet handles GET /api/tickets/{uuid}
func (h *TicketHandler) handleGet(w http.ResponseWriter, r *http.Request, ticketUUID string) {
	ticket, err := database.GetTicketByUUID(h.db, ticketUUID)
	if err != nil {
		api.RespondError(w, http.StatusNotFound, "Ticket not found")
		return
	}
	api.RespondJSON(w, http.StatusOK, ticket)
}

// handleUpdate handles PUT /api/tickets/{uuid}
func (h *TicketHandler) handleUpdate(w http.ResponseWriter, r *http.Request, ticketUUID string) {
	var req api.UpdateTicketRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := api.Validate(req); errs != nil {
		api.RespondValidationError(w, errs)
		return
	}

	old, err := database.GetTicketByUUID(h.db, ticketUUID)
	if err != nil {
		api.RespondError(w, http.StatusNotFound, "Ticket not found")
		return
	}

	err = database.UpdateTicket(h.db, ticketUUID, func(t *database.Ticket) error {
		applyTicketUpdate(t, &req)
		t.Modified = time.Now().Unix()
		return nil
	})
	if err != nil {
		log.Printf("TicketHandler: failed to update ticket %s: %v", ticketUUID, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to update ticket")
		return
	}

	updated, err := database.GetTicketByUUID(h.db, ticketUUID)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to reload ticket")
		return
	}

	username := middleware.GetUserFromContext(r.Context())
	h.engine.RecordTicketChange(old, updated, username)

	api.RespondJSON(w, http.StatusOK, updated)
}

// handleComment handles POST /api/tickets/{uuid}/comments
func (h *TicketHandler) handleComment(w http.ResponseWriter, r *http.Request, ticketUUID string) {
	var req api.CommentRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := api.Validate(req); errs != nil {
		api.RespondValidationError(w, errs)
		return
	}

	if _, err := database.GetTicketByUUID(h.db, ticketUUID); err != nil {
		api.RespondError(w, http.StatusNotFound, "Ticket not found")
		return
	}

	username := middleware.GetUserFromContext(r.Context())
	h.engine.RecordTicketComment(ticketUUID, req.Text, username, time.Now().Unix())

	api.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "buffered"})
}

// applyTicketUpdate copies the request's set fields onto the ticket
func applyTicketUpdate(t *database.Ticket, req *api.UpdateTicketRequest) {
	if req.Subject != nil {
		t.Subject = *req.Subject
	}
	if req.Body != nil {
		t.Body = *req.Body
	}
	if req.Type != nil {
		t.Type = *req.Type
	}
	if req.Category != nil {
		t.Category = *req.Category
	}
	if req.Server != nil {
		t.Server = *req.Server
	}
	if req.Status != nil {
		t.Status = database.TicketStatus(*req.Status)
	}
	if req.Assignee != nil {
		t.Assignee = *req.Assignee
	}
	if req.Due != nil {
		t.Due = *req.Due
	}
	if req.Cc != nil {
		t.Cc = *req.Cc
	}
	if req.Notify != nil {
		t.Notify = *req.Notify
	}
	if req.Tags != nil {
		t.Tags = *req.Tags
	}
}
