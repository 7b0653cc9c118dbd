package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kurir/internal/activity"
	"kurir/internal/constants"
	"kurir/internal/forwarding"
	"kurir/internal/logger"
	"kurir/internal/rules"
	pkgerrors "kurir/pkg/errors"
	"kurir/pkg/models"
)

type BaseHandler struct {
	Logger logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := pkgerrors.ToHTTPStatus(err)
	response := pkgerrors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
	store       *rules.Store
	activityLog *activity.Log
	dispatcher  *forwarding.Dispatcher
}

func NewHandler(store *rules.Store, activityLog *activity.Log, dispatcher *forwarding.Dispatcher, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{Logger: log},
		store:       store,
		activityLog: activityLog,
		dispatcher:  dispatcher,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		ruleRoutes := v1.Group("/rules")
		{
			ruleRoutes.GET("", h.ListRules)
			ruleRoutes.POST("", h.UpsertRule)
			ruleRoutes.GET("/:source", h.GetRule)
			ruleRoutes.PATCH("/:source/active", h.SetRuleActive)
			ruleRoutes.DELETE("/:source", h.DeleteRule)
		}

		v1.GET("/activity", h.ListActivity)
		v1.POST("/forward", h.Forward)
		v1.POST("/preview", h.Preview)
	}
}

// ListRules godoc
// @Summary      List all forwarding rules
// @Description  Get a list of all forwarding rules, newest first
// @Tags         rules
// @Accept       json
// @Produce      json
// @Success      200  {array}    rules.Rule
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules [get]
func (h *Handler) ListRules(c *gin.Context) {
	ruleList, err := h.store.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ruleList)
}

// UpsertRule godoc
// @Summary      Create or replace a forwarding rule
// @Description  Upsert a rule keyed by source pattern; an existing rule with the same pattern is replaced
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        rule  body       UpsertRuleRequest  true  "Forwarding rule data"
// @Success      200   {object}   rules.Rule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /rules [post]
func (h *Handler) UpsertRule(c *gin.Context) {
	var req UpsertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkgerrors.ToErrorResponse(pkgerrors.ErrValidation.WithCause(err)))
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule, err := h.store.Upsert(c.Request.Context(), rules.Rule{
		SourcePattern:  req.SourcePattern,
		FieldPatterns:  req.FieldPatterns,
		TargetBot:      req.TargetBot,
		OutputTemplate: req.OutputTemplate,
		Active:         active,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// GetRule godoc
// @Summary      Get a forwarding rule
// @Description  Get a forwarding rule by its source pattern
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        source  path      string  true  "Source pattern"
// @Success      200  {object}   rules.Rule
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/{source} [get]
func (h *Handler) GetRule(c *gin.Context) {
	rule, err := h.store.Get(c.Request.Context(), c.Param("source"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// SetRuleActive godoc
// @Summary      Activate or deactivate a forwarding rule
// @Description  Toggle the active flag of a rule without touching its other fields
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        source  path      string            true  "Source pattern"
// @Param        body    body      SetActiveRequest  true  "Active flag"
// @Success      200  {object}   rules.Rule
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /rules/{source}/active [patch]
func (h *Handler) SetRuleActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkgerrors.ToErrorResponse(pkgerrors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.store.SetActive(c.Request.Context(), c.Param("source"), *req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteRule godoc
// @Summary      Delete a forwarding rule
// @Description  Delete a forwarding rule by its source pattern
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        source  path      string  true  "Source pattern"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /rules/{source} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("source")); err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListActivity godoc
// @Summary      List recent dispatch activity
// @Description  Get recent dispatch attempts, newest first
// @Tags         activity
// @Accept       json
// @Produce      json
// @Param        limit  query     int  false  "Maximum entries to return"
// @Success      200  {array}    activity.LogEntry
// @Router       /activity [get]
func (h *Handler) ListActivity(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))
	c.JSON(http.StatusOK, h.activityLog.List(limit))
}

// Forward godoc
// @Summary      Forward a message manually
// @Description  Run one message through matching, extraction, rendering and delivery
// @Tags         forwarding
// @Accept       json
// @Produce      json
// @Param        message  body       ForwardRequest  true  "Message to forward"
// @Success      200  {object}   activity.LogEntry
// @Failure      400  {object}  errors.ErrorResponse
// @Router       /forward [post]
func (h *Handler) Forward(c *gin.Context) {
	var req ForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkgerrors.ToErrorResponse(pkgerrors.ErrValidation.WithCause(err)))
		return
	}

	entry := h.dispatcher.Dispatch(c.Request.Context(), models.InboundMessage{
		ID:        uuid.New().String(),
		Source:    req.Source,
		Message:   req.Message,
		Timestamp: time.Now(),
	})

	c.JSON(http.StatusOK, entry)
}

// Preview godoc
// @Summary      Preview extraction and rendering
// @Description  Dry-run field extraction and template rendering; nothing is delivered or logged
// @Tags         forwarding
// @Accept       json
// @Produce      json
// @Param        preview  body       PreviewRequest  true  "Message and rule to try"
// @Success      200  {object}   PreviewResponse
// @Failure      400  {object}  errors.ErrorResponse
// @Router       /preview [post]
func (h *Handler) Preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkgerrors.ToErrorResponse(pkgerrors.ErrValidation.WithCause(err)))
		return
	}

	fields, rendered := h.dispatcher.Preview(req.Message, rules.Rule{
		FieldPatterns:  req.FieldPatterns,
		OutputTemplate: req.OutputTemplate,
	})

	c.JSON(http.StatusOK, PreviewResponse{
		Fields:   fields,
		Rendered: rendered,
	})
}

func parseLimit(raw string) int {
	if raw == "" {
		return constants.DefaultLimit
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return constants.DefaultLimit
	}
	if limit > constants.MaxLimit {
		return constants.MaxLimit
	}
	return limit
}
