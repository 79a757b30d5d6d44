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

// AlertHandler handles alert ingestion from monitoring sources and alert
// queries. An activity transition fires the matching dispatch condition;
// other field updates go through the change-debounce path.
type AlertHandler struct {
	db     *gorm.DB
	engine *notify.Engine
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(db *gorm.DB, engine *notify.Engine) *AlertHandler {
	return &AlertHandler{db: db, engine: engine}
}

// SetupRoutes sets up alert routes
func (h *AlertHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/alerts", h.handleList)
	mux.HandleFunc("/api/alerts/ingest", h.handleIngest)
	mux.HandleFunc("/api/alerts/", h.handleGet)
}

// handleList handles GET /api/alerts
func (h *AlertHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	p := api.ParsePagination(r)

	query := h.db.Model(&database.Alert{})
	if active := r.URL.Query().Get("active"); active != "" {
		query = query.Where("active = ?", active == "true")
	}
	if server := r.URL.Query().Get("server"); server != "" {
		query = query.Where("server = ?", server)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to count alerts")
		return
	}

	var alerts []database.Alert
	if err := query.Order("modified DESC").Offset(p.Offset()).Limit(p.PerPage).Find(&alerts).Error; err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.PaginatedResponse{
		Data: alerts,
		Pagination: api.PaginationMeta{
			Page:       p.Page,
			PerPage:    p.PerPage,
			Total:      total,
			TotalPages: p.TotalPages(total),
		},
	})
}

// handleGet handles GET /api/alerts/{uuid}
func (h *AlertHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	alertUUID := strings.TrimPrefix(r.URL.Path, "/api/alerts/")
	if alertUUID == "" || strings.Contains(alertUUID, "/") {
		api.RespondError(w, http.StatusNotFound, "Not found")
		return
	}

	alert, err := database.GetAlertByUUID(h.db, alertUUID)
	if err != nil {
		api.RespondError(w, http.StatusNotFound, "Alert not found")
		return
	}
	api.RespondJSON(w, http.StatusOK, alert)
}

// handleIngest handles POST /api/alerts/ingest
func (h *AlertHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req api.IngestAlertRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := api.Validate(req); errs != nil {
		api.RespondValidationError(w, errs)
		return
	}

	nowActive := req.Active == nil || *req.Active
	username := middleware.GetUserFromContext(r.Context())

	old := h.findExisting(&req)

	var alert *database.Alert
	var err error
	if old == nil {
		alert, err = h.createAlert(&req, nowActive)
	} else {
		alert, err = h.updateAlert(old, &req, nowActive)
	}
	if err != nil {
		log.Printf("AlertHandler: failed to store alert '%s': %v", req.Name, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to store alert")
		return
	}

	condition := transitionCondition(old, nowActive)
	if condition != "" {
		dc := &notify.Context{
			Condition:  condition,
			RecordKind: notify.RecordKindAlert,
			RecordID:   alert.UUID,
			Title:      alert.Name,
			Message:    alert.Message,
			Server:     alert.Server,
			Groups:     alert.Groups,
			Data: map[string]interface{}{
				"severity": alert.Severity,
			},
		}
		h.engine.Dispatch(dc, requestActions(req.Actions), h.groupChannelActions(alert.Groups, condition))
	} else if old != nil {
		// no transition: ordinary field updates take the debounce path
		h.engine.RecordAlertChange(old, alert, username)
	}

	api.RespondJSON(w, http.StatusOK, api.IngestAlertResponse{
		UUID:      alert.UUID,
		Condition: condition,
	})
}

// findExisting matches the request to a stored alert by uuid, falling
// back to name+server
func (h *AlertHandler) findExisting(req *api.IngestAlertRequest) *database.Alert {
	if req.UUID != "" {
		if a, err := database.GetAlertByUUID(h.db, req.UUID); err == nil {
			return a
		}
		return nil
	}
	var a database.Alert
	if err := h.db.Where("name = ? AND server = ?", req.Name, req.Server).First(&a).Error; err != nil {
		return nil
	}
	return &a
}

func (h *AlertHandler) createAlert(req *api.IngestAlertRequest, active bool) (*database.Alert, error) {
	alert := database.Alert{
		UUID:     uuid.New().String(),
		Name:     req.Name,
		Server:   req.Server,
		Severity: req.Severity,
		Message:  req.Message,
		Active:   active,
		Groups:   req.Groups,
	}
	if err := h.db.Create(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

func (h *AlertHandler) updateAlert(old *database.Alert, req *api.IngestAlertRequest, active bool) (*database.Alert, error) {
	err := database.UpdateAlert(h.db, old.UUID, func(a *database.Alert) error {
		a.Name = req.Name
		a.Server = req.Server
		a.Severity = req.Severity
		a.Message = req.Message
		a.Active = active
		if req.Groups != nil {
			a.Groups = req.Groups
		}
		a.Modified = time.Now().Unix()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return database.GetAlertByUUID(h.db, old.UUID)
}

// transitionCondition maps the activity flip to a dispatch condition;
// no flip means no dispatch
func transitionCondition(old *database.Alert, nowActive bool) string {
	wasActive := old != nil && old.Active
	switch {
	case !wasActive && nowActive:
		return notify.ConditionAlertNew
	case wasActive && !nowActive:
		return notify.ConditionAlertCleared
	default:
		return ""
	}
}

// requestActions converts inline action definitions to engine actions
func requestActions(reqs []api.ActionRequest) []*notify.Action {
	var actions []*notify.Action
	for _, r := range reqs {
		actions = append(actions, &notify.Action{
			Type:      r.Type,
			Enabled:   r.Enabled == nil || *r.Enabled,
			Condition: r.Condition,
			Email:     r.Email,
			Users:     r.Users,
			WebHook:   r.WebHook,
			EventID:   r.EventID,
			ChannelID: r.ChannelID,
			PluginID:  r.PluginID,
			Params:    r.Params,
		})
	}
	return actions
}

// groupChannelActions builds the scope-level action list: every alert
// group naming an existing notification channel contributes one channel
// action, in group order
func (h *AlertHandler) groupChannelActions(groups []string, condition string) [][]*notify.Action {
	if len(groups) == 0 {
		return nil
	}

	var channels []database.NotificationChannel
	if err := h.db.Where("channel_id IN ?", groups).Find(&channels).Error; err != nil {
		log.Printf("AlertHandler: failed to load channels for groups: %v", err)
		return nil
	}
	known := make(map[string]bool, len(channels))
	for _, ch := range channels {
		known[ch.ChannelID] = true
	}

	var scope []*notify.Action
	for _, g := range groups {
		if !known[g] {
			continue
		}
		scope = append(scope, &notify.Action{
			Type:      notify.TypeChannel,
			Enabled:   true,
			Condition: condition,
			ChannelID: g,
		})
	}
	if scope == nil {
		return nil
	}
	return [][]*notify.Action{scope}
}
