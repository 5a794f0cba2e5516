package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"agrosync-server/internal/domain"
	"agrosync-server/internal/middleware"
	"agrosync-server/internal/service"
	"agrosync-server/pkg/response"
)

type SyncHandler struct {
	syncService     *service.SyncService
	conflictService *service.ConflictService
	validate        *validator.Validate
}

func NewSyncHandler(syncService *service.SyncService, conflictService *service.ConflictService) *SyncHandler {
	return &SyncHandler{
		syncService:     syncService,
		conflictService: conflictService,
		validate:        validator.New(),
	}
}

func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r)
	if tenantID == "" {
		response.BadRequest(w, "missing tenant context")
		return
	}

	var req domain.SyncPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.StructPartial(&req, "DeviceID"); err != nil {
		response.BadRequest(w, "invalid device_id")
		return
	}

	res, err := h.syncService.Push(r.Context(), tenantID, &req)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.JSON(w, http.StatusOK, res)
}

func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r)
	if tenantID == "" {
		response.BadRequest(w, "missing tenant context")
		return
	}

	var req domain.SyncPullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, "invalid pull parameters")
		return
	}

	res, err := h.syncService.Pull(r.Context(), tenantID, &req)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.JSON(w, http.StatusOK, res)
}

func (h *SyncHandler) ListConflicts(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r)
	if tenantID == "" {
		response.BadRequest(w, "missing tenant context")
		return
	}

	status := domain.ConflictStatus(r.URL.Query().Get("status"))
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(w, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	res, err := h.conflictService.List(r.Context(), tenantID, status, limit)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.JSON(w, http.StatusOK, res)
}

func (h *SyncHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r)
	if tenantID == "" {
		response.BadRequest(w, "missing tenant context")
		return
	}

	conflictID := mux.Vars(r)["id"]

	var req domain.ConflictResolutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, "invalid resolution request")
		return
	}

	conflict, err := h.conflictService.Resolve(r.Context(), tenantID, conflictID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConflictNotFound):
			response.NotFound(w, "conflict not found")
		case errors.Is(err, service.ErrConflictNotPending):
			response.Error(w, http.StatusConflict, "conflict already resolved")
		default:
			response.InternalError(w, err.Error())
		}
		return
	}

	response.JSON(w, http.StatusOK, conflict)
}
