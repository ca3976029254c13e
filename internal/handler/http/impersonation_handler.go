// File: backend/services/impersonation-service/internal/handler/http/impersonation_handler.go
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/repository"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/handler/http/middleware"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/service"
)

const (
	defaultPageLimit      = 50
	defaultAuditPageLimit = 100
	maxPageLimit          = 200
)

// ImpersonationHandler exposes the impersonation lifecycle over HTTP.
type ImpersonationHandler struct {
	logger  *zap.Logger
	service *service.ImpersonationService
}

// NewImpersonationHandler creates a new ImpersonationHandler.
func NewImpersonationHandler(svc *service.ImpersonationService, logger *zap.Logger) *ImpersonationHandler {
	return &ImpersonationHandler{
		logger:  logger.Named("impersonation_handler"),
		service: svc,
	}
}

// StartImpersonationRequest is the body of POST /impersonation/start.
type StartImpersonationRequest struct {
	ClientID     string  `json:"targetClientId" binding:"required"`
	Reason       *string `json:"reason"`
	RefreshToken string  `json:"refreshToken"`
}

// StartImpersonation handles POST /impersonation/start.
func (h *ImpersonationHandler) StartImpersonation(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		RespondWithError(c, http.StatusUnauthorized, "unauthorized", "Authentication required", h.logger)
		return
	}

	var req StartImpersonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "validation_error", "targetClientId is required", h.logger)
		return
	}

	accessToken, _ := middleware.BearerTokenFromContext(c)
	creds := service.Credentials{
		AccessToken:  accessToken,
		RefreshToken: req.RefreshToken,
	}

	result, err := h.service.Start(c.Request.Context(), claims.ClientID, req.ClientID, req.Reason, creds, requestMeta(c))
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	RespondWithSuccess(c, http.StatusOK, gin.H{
		"impersonationToken": result.ImpersonationToken,
		"sessionId":          result.SessionID,
		"expiresAt":          result.ExpiresAt,
		"impersonatedClient": result.ImpersonatedClient,
		"originalAdmin":      result.OriginalAdmin,
	})
}

// EndImpersonation handles POST /impersonation/end. Only an impersonating
// principal can end its own session; the sealed original credentials are
// returned so the operator resumes their prior authenticated state.
func (h *ImpersonationHandler) EndImpersonation(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		RespondWithError(c, http.StatusUnauthorized, "unauthorized", "Authentication required", h.logger)
		return
	}

	result, err := h.service.End(c.Request.Context(), claims, requestMeta(c))
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	payload := gin.H{
		"message":              "Impersonation session ended",
		"originalAccessToken":  result.OriginalAccessToken,
		"originalRefreshToken": result.OriginalRefreshToken,
		"credentialsRecovered": result.CredentialsRecovered,
		"admin":                result.Admin,
	}
	if !result.CredentialsRecovered {
		payload["message"] = "Impersonation session ended, but the original credentials could not be recovered; please sign in again"
	}
	RespondWithSuccess(c, http.StatusOK, payload)
}

// GetActiveImpersonation handles GET /impersonation/active.
func (h *ImpersonationHandler) GetActiveImpersonation(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		RespondWithError(c, http.StatusUnauthorized, "unauthorized", "Authentication required", h.logger)
		return
	}

	principalID := claims.ClientID
	if claims.IsImpersonating {
		principalID = claims.AdminID
	}

	status, err := h.service.GetActive(c.Request.Context(), claims, principalID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	RespondWithSuccess(c, http.StatusOK, gin.H{
		"isImpersonating":  status.IsImpersonating,
		"hasActiveSession": status.HasActiveSession,
		"session":          status.Session,
	})
}

// GetImpersonationHistory handles GET /impersonation/history.
func (h *ImpersonationHandler) GetImpersonationHistory(c *gin.Context) {
	params := repository.ListSessionParams{
		Limit:  pageLimit(c),
		Offset: pageOffset(c),
	}
	if adminID := c.Query("adminId"); adminID != "" {
		params.AdminID = &adminID
	}
	if clientID := c.Query("clientId"); clientID != "" {
		params.ClientID = &clientID
	}

	items, total, err := h.service.History(c.Request.Context(), params)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	sessions := make([]gin.H, 0, len(items))
	for _, item := range items {
		sessions = append(sessions, gin.H{
			"id":                 item.Session.ID,
			"status":             item.Session.Status,
			"reason":             item.Session.Reason,
			"startedAt":          item.Session.StartedAt,
			"expiresAt":          item.Session.ExpiresAt,
			"endedAt":            item.Session.EndedAt,
			"admin":              item.Admin,
			"impersonatedClient": item.ImpersonatedClient,
		})
	}

	RespondWithSuccess(c, http.StatusOK, gin.H{
		"sessions": sessions,
		"pagination": gin.H{
			"limit":  params.Limit,
			"offset": params.Offset,
			"total":  total,
		},
	})
}

// GetSessionAuditLogs handles GET /impersonation/audit/:sessionId.
func (h *ImpersonationHandler) GetSessionAuditLogs(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		RespondWithError(c, http.StatusBadRequest, "validation_error", "sessionId is required", h.logger)
		return
	}

	params := repository.ListAuditLogParams{
		SessionID: sessionID,
		Limit:     auditPageLimit(c),
		Offset:    pageOffset(c),
	}

	entries, total, err := h.service.SessionAuditLogs(c.Request.Context(), params)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	RespondWithSuccess(c, http.StatusOK, gin.H{
		"logs": entries,
		"pagination": gin.H{
			"limit":  params.Limit,
			"offset": params.Offset,
			"total":  total,
		},
	})
}

// ForceEndImpersonation handles POST /impersonation/force-end/:sessionId.
func (h *ImpersonationHandler) ForceEndImpersonation(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		RespondWithError(c, http.StatusUnauthorized, "unauthorized", "Authentication required", h.logger)
		return
	}

	sessionID := c.Param("sessionId")
	if sessionID == "" {
		RespondWithError(c, http.StatusBadRequest, "validation_error", "sessionId is required", h.logger)
		return
	}

	if err := h.service.ForceEnd(c.Request.Context(), sessionID, claims.ClientID, requestMeta(c)); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	RespondWithSuccess(c, http.StatusOK, gin.H{
		"message": "Impersonation session terminated",
	})
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Endpoint:  c.Request.Method + " " + c.FullPath(),
		Method:    c.Request.Method,
		Path:      c.Request.URL.RequestURI(),
	}
}

func pageLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

func auditPageLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultAuditPageLimit)))
	if err != nil || limit <= 0 {
		return defaultAuditPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

func pageOffset(c *gin.Context) int {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}
