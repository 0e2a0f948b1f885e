package audit

import (
	"strconv"
	"time"

	"jmkresearch-backend/internal/apperrors"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	Service AuditService
}

func NewAuditController(service AuditService) *AuditController {
	return &AuditController{Service: service}
}

// ListLogs godoc
// @Summary      List audit logs
// @Description  Newest first. Actor names are resolved on read.
// @Tags         audit
// @Produce      json
// @Param        module    query string false "Module name (role, permission, user_plan, ...)"
// @Param        record_id query string false "Record ID"
// @Param        actor_id  query string false "Actor ID or \"system\""
// @Param        action    query string false "CREATE, UPDATE, DELETE, ASSIGN, REVOKE or SWEEP"
// @Param        since     query string false "RFC3339 lower bound on timestamp"
// @Param        page      query int    false "Page number" default(1)
// @Param        limit     query int    false "Items per page" default(20)
// @Success      200  {object} LogPage
// @Failure      400  {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /api/audit-logs [get]
func (ctrl *AuditController) ListLogs(c *fiber.Ctx) error {
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)

	filter := LogFilter{
		Module:   c.Query("module"),
		RecordID: c.Query("record_id"),
		ActorID:  c.Query("actor_id"),
		Action:   c.Query("action"),
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return apperrors.Validation("since must be an RFC3339 timestamp")
		}
		filter.Since = &since
	}

	result, err := ctrl.Service.ListLogs(c.UserContext(), filter, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
