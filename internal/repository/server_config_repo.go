package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/lock"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
)

var (
	schemePrefix = regexp.MustCompile(`^https?://`)
	portSuffix   = regexp.MustCompile(`:\d+$`)
)

// ServerConfigRepository stores per-server connection overrides. Every
// writer reads the current row and writes it back whole, so fields a writer
// does not own keep their stored value.
type ServerConfigRepository struct {
	db     *gorm.DB
	schema *Schema
	locker lock.Locker
}

func NewServerConfigRepository(db *gorm.DB, schema *Schema, locker lock.Locker) *ServerConfigRepository {
	return &ServerConfigRepository{db: db, schema: schema, locker: locker}
}

// Get returns the override row of a server
func (r *ServerConfigRepository) Get(ctx context.Context, serverID int) (*models.ServerConfig, error) {
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	var row models.ServerConfig
	err := r.db.WithContext(ctx).Where("server_id = ?", serverID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get server config: %w", err)
	}
	return &row, nil
}

func (r *ServerConfigRepository) lookup(ctx context.Context, serverID int) (*models.ServerConfig, error) {
	row, err := r.Get(ctx, serverID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return row, err
}

// GetPort returns the API port override, nil when unset
func (r *ServerConfigRepository) GetPort(ctx context.Context, serverID int) (*int, error) {
	row, err := r.lookup(ctx, serverID)
	if err != nil || row == nil {
		return nil, err
	}
	return positive(row.Port), nil
}

// GetBasePath returns the API base path override, nil when unset
func (r *ServerConfigRepository) GetBasePath(ctx context.Context, serverID int) (*string, error) {
	row, err := r.lookup(ctx, serverID)
	if err != nil || row == nil {
		return nil, err
	}
	return stringValue(row.BasePath), nil
}

func (r *ServerConfigRepository) GetSubDomain(ctx context.Context, serverID int) (*string, error) {
	row, err := r.lookup(ctx, serverID)
	if err != nil || row == nil {
		return nil, err
	}
	return stringValue(row.SubDomain), nil
}

func (r *ServerConfigRepository) GetSubPort(ctx context.Context, serverID int) (*int, error) {
	row, err := r.lookup(ctx, serverID)
	if err != nil || row == nil {
		return nil, err
	}
	return positive(row.SubPort), nil
}

func (r *ServerConfigRepository) GetSubURIPath(ctx context.Context, serverID int) (*string, error) {
	row, err := r.lookup(ctx, serverID)
	if err != nil || row == nil {
		return nil, err
	}
	return stringValue(row.SubURIPath), nil
}

// SetPort writes the port override; nil clears it
func (r *ServerConfigRepository) SetPort(ctx context.Context, serverID int, port *int) error {
	return r.upsert(ctx, serverID, func(row *models.ServerConfig) {
		row.Port = positive(port)
	})
}

// SetBasePath writes the base path override; blank clears it
func (r *ServerConfigRepository) SetBasePath(ctx context.Context, serverID int, basePath string) error {
	return r.upsert(ctx, serverID, func(row *models.ServerConfig) {
		row.BasePath = normalizePath(basePath)
	})
}

// SetPortAndBasePath writes both API overrides, keeping the subscription fields
func (r *ServerConfigRepository) SetPortAndBasePath(ctx context.Context, serverID int, port *int, basePath string) error {
	return r.upsert(ctx, serverID, func(row *models.ServerConfig) {
		row.Port = positive(port)
		row.BasePath = normalizePath(basePath)
	})
}

// SetSubscriptionSettings writes only the subscription link fields. A new
// row starts with no port or base path.
func (r *ServerConfigRepository) SetSubscriptionSettings(ctx context.Context, serverID int, subDomain string, subPort *int, subURIPath string) error {
	return r.upsert(ctx, serverID, func(row *models.ServerConfig) {
		row.SubDomain = nonEmpty(subDomain)
		row.SubPort = positive(subPort)
		row.SubURIPath = normalizePath(subURIPath)
	})
}

// SetHostname records the hostname a server was saved with
func (r *ServerConfigRepository) SetHostname(ctx context.Context, serverID int, hostname string) error {
	return r.upsert(ctx, serverID, func(row *models.ServerConfig) {
		row.Hostname = nonEmpty(hostname)
	})
}

// FindByHostname returns the server stored with exactly this hostname, or
// else the lowest server id whose hostname names the same host once scheme,
// port and path are stripped. A stored hostname that merely contains the
// host does not match.
func (r *ServerConfigRepository) FindByHostname(ctx context.Context, hostname string) (*models.ServerConfig, error) {
	hostname = strings.TrimSpace(hostname)
	key := hostKey(hostname)
	if key == "" {
		return nil, ErrNotFound
	}
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}

	var row models.ServerConfig
	err := r.db.WithContext(ctx).
		Where("hostname = ?", hostname).
		Order("server_id ASC").
		First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find server config by hostname: %w", err)
	}

	var candidates []models.ServerConfig
	err = r.db.WithContext(ctx).
		Where("LOWER(hostname) LIKE ?", "%"+key+"%").
		Order("server_id ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("find server config by hostname: %w", err)
	}
	for i := range candidates {
		if candidates[i].Hostname != nil && hostKey(*candidates[i].Hostname) == key {
			return &candidates[i], nil
		}
	}
	return nil, ErrNotFound
}

// hostKey lowercases a hostname and strips scheme, path and port
func hostKey(hostname string) string {
	h := strings.ToLower(strings.TrimSpace(hostname))
	h = schemePrefix.ReplaceAllString(h, "")
	if i := strings.IndexByte(h, '/'); i >= 0 {
		h = h[:i]
	}
	return portSuffix.ReplaceAllString(h, "")
}

// List returns all known servers ordered by hostname
func (r *ServerConfigRepository) List(ctx context.Context) ([]models.ServerConfig, error) {
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	var rows []models.ServerConfig
	if err := r.db.WithContext(ctx).Order("hostname ASC, server_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list server configs: %w", err)
	}
	return rows, nil
}

func (r *ServerConfigRepository) upsert(ctx context.Context, serverID int, apply func(row *models.ServerConfig)) error {
	if err := r.schema.Ensure(ctx); err != nil {
		return err
	}
	return lock.With(ctx, r.locker, fmt.Sprintf("server_config:%d", serverID), func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			row := models.ServerConfig{ServerID: serverID}
			err := tx.Where("server_id = ?", serverID).First(&row).Error
			switch {
			case err == nil:
				apply(&row)
				if err := tx.Save(&row).Error; err != nil {
					return fmt.Errorf("update server config: %w", err)
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				apply(&row)
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("insert server config: %w", err)
				}
			default:
				return fmt.Errorf("read server config: %w", err)
			}
			return nil
		})
	})
}
