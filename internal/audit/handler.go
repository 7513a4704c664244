package audit

import (
	"fmt"

	"adisyon-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	BeforeData  string             `json:"before_data"`
	AfterData   string             `json:"after_data"`
}

// GET /api/audit-logs?entity_type=order&entity_id=1&user_id=2&limit=200
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.WithContext(c.UserContext()).Model(&models.AuditLog{})

		if userIDStr := c.Query("user_id"); userIDStr != "" {
			var uid uint
			if _, err := fmt.Sscan(userIDStr, &uid); err == nil && uid > 0 {
				dbq = dbq.Where("user_id = ?", uid)
			}
		}
		if entityType := c.Query("entity_type"); entityType != "" {
			dbq = dbq.Where("entity_type = ?", entityType)
		}
		if entityIDStr := c.Query("entity_id"); entityIDStr != "" {
			var eid uint
			if _, err := fmt.Sscan(entityIDStr, &eid); err == nil && eid > 0 {
				dbq = dbq.Where("entity_id = ?", eid)
			}
		}

		limit := c.QueryInt("limit", 200)
		if limit <= 0 || limit > 1000 {
			limit = 200
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Loglar listelenemedi")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
				UserID:      l.UserID,
				UserName:    l.UserName,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
				BeforeData:  l.BeforeData,
				AfterData:   l.AfterData,
			})
		}

		return c.JSON(resp)
	}
}
