package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/service"
)

type Handler struct {
	module  service.Module
	admin   ServerAdmin
	callLog CallLogReader
}

func NewHandler(module service.Module, admin ServerAdmin, callLog CallLogReader) *Handler {
	return &Handler{
		module:  module,
		admin:   admin,
		callLog: callLog,
	}
}

// bindParams decodes the host's parameter bag. It writes the 400 response
// itself and reports whether the handler should continue.
func bindParams(c *gin.Context) (models.Params, bool) {
	var params models.Params
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return params, false
	}
	return params, true
}

// ==================== Module Metadata ====================

func (h *Handler) MetaData(c *gin.Context) {
	c.JSON(http.StatusOK, h.module.MetaData())
}

func (h *Handler) ConfigOptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.module.ConfigOptions(c.Request.Context()))
}

func (h *Handler) AdminCustomButtons(c *gin.Context) {
	c.JSON(http.StatusOK, h.module.AdminCustomButtons())
}

// ==================== Lifecycle Callbacks ====================

// Lifecycle callbacks always answer 200; the outcome travels in the body
// the same way the host's in-process contract reports it.

func (h *Handler) CreateAccount(c *gin.Context) {
	h.mutation(c, h.module.CreateAccount)
}

func (h *Handler) SuspendAccount(c *gin.Context) {
	h.mutation(c, h.module.SuspendAccount)
}

func (h *Handler) UnsuspendAccount(c *gin.Context) {
	h.mutation(c, h.module.UnsuspendAccount)
}

func (h *Handler) TerminateAccount(c *gin.Context) {
	h.mutation(c, h.module.TerminateAccount)
}

func (h *Handler) ChangePackage(c *gin.Context) {
	h.mutation(c, h.module.ChangePackage)
}

func (h *Handler) SyncStatus(c *gin.Context) {
	h.mutation(c, h.module.SyncStatus)
}

func (h *Handler) ResetTraffic(c *gin.Context) {
	h.mutation(c, h.module.ResetTraffic)
}

func (h *Handler) ClearIps(c *gin.Context) {
	h.mutation(c, h.module.ClearIps)
}

func (h *Handler) TestConnection(c *gin.Context) {
	params, ok := bindParams(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.module.TestConnection(c.Request.Context(), params))
}

func (h *Handler) mutation(c *gin.Context, op func(ctx context.Context, params models.Params) models.Result) {
	params, ok := bindParams(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, op(c.Request.Context(), params))
}

// ==================== Display Callbacks ====================

func (h *Handler) AdminServicesTab(c *gin.Context) {
	params, ok := bindParams(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.module.AdminServicesTabFields(c.Request.Context(), params))
}

func (h *Handler) ClientArea(c *gin.Context) {
	params, ok := bindParams(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.module.ClientArea(c.Request.Context(), params))
}

// ==================== Server Settings ====================

// ServerEdit persists a server add/edit event from the host
func (h *Handler) ServerEdit(c *gin.Context) {
	var req models.ServerSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.saveServerSettings(c, req)
}

func (h *Handler) PutServerSettings(c *gin.Context) {
	serverID, ok := serverIDParam(c)
	if !ok {
		return
	}
	var req models.ServerSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ServerID = serverID
	h.saveServerSettings(c, req)
}

func (h *Handler) saveServerSettings(c *gin.Context, req models.ServerSettings) {
	if err := h.admin.SaveServerSettings(c.Request.Context(), req); err != nil {
		var validation *service.ValidationError
		if errors.As(err, &validation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message})
			return
		}
		log.Error().Err(err).Str("component", "http").Int("server_id", req.ServerID).Msg("save server settings failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.admin.GetServerSettings(c.Request.Context(), req.ServerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) GetServerSettings(c *gin.Context) {
	serverID, ok := serverIDParam(c)
	if !ok {
		return
	}
	settings, err := h.admin.GetServerSettings(c.Request.Context(), serverID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// ListSquads answers the product page's squad dropdown. Failures are
// reported in the body with success=false.
func (h *Handler) ListSquads(c *gin.Context) {
	params, ok := bindParams(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.admin.ListSquads(c.Request.Context(), params))
}

// ==================== Call Log ====================

// ListCallLogs returns recent call log entries
// GET /logs?service_id=&limit=
func (h *Handler) ListCallLogs(c *gin.Context) {
	serviceID, err := strconv.Atoi(c.DefaultQuery("service_id", "0"))
	if err != nil || serviceID < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service_id"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	entries, err := h.callLog.List(c.Request.Context(), serviceID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []models.ModuleCallLog{}
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func serverIDParam(c *gin.Context) (int, bool) {
	serverID, err := strconv.Atoi(c.Param("id"))
	if err != nil || serverID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.MsgInvalidServerID})
		return 0, false
	}
	return serverID, true
}
