package config

import (
	"github.com/garyjia/stocktake/internal/container"
	"github.com/garyjia/stocktake/internal/email"
)

// ToContainerConfig converts the application Config to a container.Config.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Store: container.StoreConfig{
			Driver:          c.Store.Driver,
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Email: email.Config{
			Host:     c.Email.Host,
			Port:     c.Email.Port,
			Username: c.Email.Username,
			Password: c.Email.Password,
			From:     c.Email.From,
			Timeout:  c.Email.Timeout,
		},
		EmailSubject: c.Email.Subject,
		ExportDir:    c.Export.Dir,
	}
}
