package handler

import (
	"net/http"

	"github.com/makingtools/rapidbites-sub001/internal/apierror"
	"github.com/makingtools/rapidbites-sub001/internal/dto"
	"github.com/makingtools/rapidbites-sub001/internal/middleware"
	"github.com/makingtools/rapidbites-sub001/internal/model"
	"github.com/makingtools/rapidbites-sub001/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CashHandler struct {
	sessions service.SessionService
	closings service.ClosingService
}

func NewCashHandler(sessions service.SessionService, closings service.ClosingService) *CashHandler {
	return &CashHandler{sessions: sessions, closings: closings}
}

// OpenSession godoc
// @Summary Open a cash session for the authenticated operator
// @Tags cash
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenSessionRequest true "Opening float"
// @Success 201 {object} dto.SessionResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/cash/sessions [post]
func (h *CashHandler) OpenSession(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	userID, _ := middleware.GetClaims(c).OperatorID()

	session, err := h.sessions.OpenSession(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSessionResponse(session))
}

// CloseSession godoc
// @Summary Close a session with the counted amounts and store the reconciliation
// @Tags cash
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.CloseSessionRequest true "Counted amounts"
// @Success 200 {object} dto.ClosingResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Failure 503 {object} apierror.APIError
// @Router /v1/cash/sessions/{id}/close [post]
func (h *CashHandler) CloseSession(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if _, ok := h.authorizedSession(c, id); !ok {
		return
	}

	closing, err := h.sessions.CloseSession(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewClosingResponse(closing))
}

// GetActive godoc
// @Summary Active session of the authenticated operator
// @Tags cash
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash/sessions/active [get]
func (h *CashHandler) GetActive(c *gin.Context) {
	userID, _ := middleware.GetClaims(c).OperatorID()
	session, err := h.sessions.GetActive(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, apierror.New(apierror.CodeSessionNotFound, "no active cash session"))
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

// GetSession godoc
// @Summary Get one cash session
// @Tags cash
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash/sessions/{id} [get]
func (h *CashHandler) GetSession(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	session, ok := h.authorizedSession(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

// Expected godoc
// @Summary Live expected totals per payment method
// @Tags cash
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.ExpectedResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash/sessions/{id}/expected [get]
func (h *CashHandler) Expected(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if _, ok := h.authorizedSession(c, id); !ok {
		return
	}
	resp, err := h.sessions.Expected(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListSessions godoc
// @Summary List cash sessions, newest first
// @Tags cash
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Success 200 {object} dto.PageResponse[dto.SessionResponse]
// @Failure 403 {object} apierror.APIError
// @Router /v1/cash/sessions [get]
func (h *CashHandler) ListSessions(c *gin.Context) {
	page, limit := pagination(c)
	sessions, total, err := h.sessions.ListSessions(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	data := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		data = append(data, dto.NewSessionResponse(&sessions[i]))
	}
	c.JSON(http.StatusOK, dto.PageResponse[dto.SessionResponse]{Data: data, Page: page, Limit: limit, Total: total})
}

// ListClosings godoc
// @Summary List closing records, oldest first
// @Tags cash
// @Produce json
// @Security BearerAuth
// @Param session_id query string false "Only closings of this session"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Success 200 {object} dto.PageResponse[dto.ClosingResponse]
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash/closings [get]
func (h *CashHandler) ListClosings(c *gin.Context) {
	page, limit := pagination(c)
	var sessionID *uuid.UUID
	if raw := c.Query("session_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, "invalid session_id"))
			return
		}
		sessionID = &id
	}

	closings, total, err := h.closings.ListClosings(c.Request.Context(), sessionID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	data := make([]dto.ClosingResponse, 0, len(closings))
	for i := range closings {
		data = append(data, dto.NewClosingResponse(&closings[i]))
	}
	c.JSON(http.StatusOK, dto.PageResponse[dto.ClosingResponse]{Data: data, Page: page, Limit: limit, Total: total})
}

// authorizedSession loads the session and lets cashiers reach only their own.
func (h *CashHandler) authorizedSession(c *gin.Context, id uuid.UUID) (*model.CashSession, bool) {
	session, err := h.sessions.GetSession(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	claims := middleware.GetClaims(c)
	if claims.Role == model.RoleCashier {
		if userID, _ := claims.OperatorID(); userID != session.UserID {
			c.JSON(http.StatusForbidden, apierror.New(apierror.CodeForbidden, "session belongs to another operator"))
			return nil, false
		}
	}
	return session, true
}
