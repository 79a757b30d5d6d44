package secrets

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/database"
)

// Provider loads secret key/value pairs scoped to a configuration object,
// e.g. the credentials a plugin needs at run time.
type Provider struct {
	db *gorm.DB
}

// NewProvider creates a database-backed secrets provider
func NewProvider(db *gorm.DB) *Provider {
	return &Provider{db: db}
}

// For returns all secrets stored for the given scope as a map. A scope
// with no secrets yields an empty map, not an error.
func (p *Provider) For(scopeType, scopeID string) (map[string]string, error) {
	var rows []database.PluginSecret
	if err := p.db.Where("scope_type = ? AND scope_id = ?", scopeType, scopeID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load secrets for %s/%s: %w", scopeType, scopeID, err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Value
	}
	return out, nil
}

// Set stores or replaces one secret in a scope
func (p *Provider) Set(scopeType, scopeID, name, value string) error {
	var existing database.PluginSecret
	err := p.db.Where("scope_type = ? AND scope_id = ? AND name = ?", scopeType, scopeID, name).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return p.db.Create(&database.PluginSecret{
			ScopeType: scopeType,
			ScopeID:   scopeID,
			Name:      name,
			Value:     value,
		}).Error
	}
	if err != nil {
		return err
	}
	existing.Value = value
	return p.db.Save(&existing).Error
}

// Delete removes one secret from a scope
func (p *Provider) Delete(scopeType, scopeID, name string) error {
	return p.db.Where("scope_type = ? AND scope_id = ? AND name = ?", scopeType, scopeID, name).
		Delete(&database.PluginSecret{}).Error
}
