package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
)

// Request keys containing any of these are masked before they are stored
var sensitivePatterns = []string{"password", "hash", "secret", "token", "api_key"}

const maskedValue = "***"

func isSensitiveKey(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range sensitivePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Sanitize returns a copy of params with credentials masked, nested maps included
func Sanitize(params map[string]interface{}) map[string]interface{} {
	if params == nil {
		return nil
	}
	out := make(map[string]interface{}, len(params))
	for key, v := range params {
		if isSensitiveKey(key) {
			out[key] = maskedValue
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			out[key] = Sanitize(nested)
			continue
		}
		out[key] = v
	}
	return out
}

type CallLogRepository struct {
	db     *gorm.DB
	schema *Schema
}

func NewCallLogRepository(db *gorm.DB, schema *Schema) *CallLogRepository {
	return &CallLogRepository{db: db, schema: schema}
}

// Create stores an entry; the request map is sanitized on the way in
func (r *CallLogRepository) Create(ctx context.Context, entry *models.ModuleCallLog) error {
	if err := r.schema.Ensure(ctx); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.Request = Sanitize(entry.Request)

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert call log: %w", err)
	}
	return nil
}

// LogAction is a helper to log an action
func (r *CallLogRepository) LogAction(ctx context.Context, serviceID, serverID int, action, status, message string, request map[string]interface{}) error {
	return r.Create(ctx, &models.ModuleCallLog{
		ServiceID: serviceID,
		ServerID:  serverID,
		Action:    action,
		Status:    status,
		Message:   message,
		Request:   request,
	})
}

// List returns the newest entries first. serviceID 0 lists every service.
func (r *CallLogRepository) List(ctx context.Context, serviceID, limit int) ([]models.ModuleCallLog, error) {
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if serviceID > 0 {
		q = q.Where("service_id = ?", serviceID)
	}

	entries := []models.ModuleCallLog{}
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("query call log: %w", err)
	}
	return entries, nil
}
