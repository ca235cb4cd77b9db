package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/lock"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
)

// ServiceDataRepository stores the link between a billing service and its
// remote panel user
type ServiceDataRepository struct {
	db     *gorm.DB
	schema *Schema
	locker lock.Locker
	now    func() time.Time
}

func NewServiceDataRepository(db *gorm.DB, schema *Schema, locker lock.Locker) *ServiceDataRepository {
	return &ServiceDataRepository{db: db, schema: schema, locker: locker, now: time.Now}
}

// Save upserts the record of a service. created_at survives updates.
func (r *ServiceDataRepository) Save(ctx context.Context, serviceID int, userUUID, clientEmail string, squadID *string) error {
	if err := r.schema.Ensure(ctx); err != nil {
		return err
	}
	return lock.With(ctx, r.locker, fmt.Sprintf("service_data:%d", serviceID), func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			now := r.now().UTC()
			var row models.ServiceData
			err := tx.Where("service_id = ?", serviceID).First(&row).Error
			switch {
			case err == nil:
			case errors.Is(err, gorm.ErrRecordNotFound):
				row = models.ServiceData{ServiceID: serviceID, CreatedAt: now}
			default:
				return fmt.Errorf("read service data: %w", err)
			}

			row.UserUUID = userUUID
			row.ClientEmail = clientEmail
			row.SquadID = stringValue(squadID)
			row.UpdatedAt = now
			if row.CreatedAt.IsZero() {
				row.CreatedAt = now
			}

			if err := tx.Save(&row).Error; err != nil {
				return fmt.Errorf("save service data: %w", err)
			}
			return nil
		})
	})
}

// Get returns nil, nil when the service is not provisioned
func (r *ServiceDataRepository) Get(ctx context.Context, serviceID int) (*models.ServiceData, error) {
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	var row models.ServiceData
	err := r.db.WithContext(ctx).Where("service_id = ?", serviceID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get service data: %w", err)
	}
	return &row, nil
}

// Delete removes the record; deleting a missing record is not an error
func (r *ServiceDataRepository) Delete(ctx context.Context, serviceID int) error {
	if err := r.schema.Ensure(ctx); err != nil {
		return err
	}
	return lock.With(ctx, r.locker, fmt.Sprintf("service_data:%d", serviceID), func() error {
		if err := r.db.WithContext(ctx).Where("service_id = ?", serviceID).Delete(&models.ServiceData{}).Error; err != nil {
			return fmt.Errorf("delete service data: %w", err)
		}
		return nil
	})
}
