package audit

import (
	"encoding/json"
	"fmt"

	"adisyon-backend/internal/models"

	"gorm.io/gorm"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog verilen db / transaction üzerinden audit kaydı ekler.
func WriteLog(db *gorm.DB, opts LogOptions) error {
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: truncate(opts.Description, 255),
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := db.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log kaydedilemedi: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
