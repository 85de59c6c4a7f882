package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"leavedesk/internal/shared/apperror"
	"leavedesk/internal/shared/contextutil"
	"leavedesk/internal/shared/response"
)

type Handler struct {
	repo   Repository
	logger *zap.Logger
}

func NewHandler(repo Repository, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("audit.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit.handler")
	}
	return &Handler{repo: repo, logger: l}
}

// GetTrail returns the most recent audit entries for one entity, newest
// first.
func (h *Handler) GetTrail(c *gin.Context) {
	entityType := c.Param("entityType")
	entityID := c.Param("entityId")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}

	log := contextutil.GetLogger(c.Request.Context(), h.logger)
	if viewer, ok := contextutil.GetPrincipal(c.Request.Context()); ok {
		log.Debug("audit trail requested",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.String("viewer_id", viewer.ID),
		)
	}

	entries, err := h.repo.FindByEntity(c.Request.Context(), entityType, entityID, limit)
	if err != nil {
		log.Error("audit trail lookup failed",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
		httpErr := apperror.ToHTTP(err)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, nil)
		return
	}

	response.Success(c, http.StatusOK, mapToTrailResponse(entries), nil)
}
