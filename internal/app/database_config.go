package app

import (
	"strings"

	"github.com/charlesng35/authflow/internal/database"
)

// UsesMongo reports whether accounts live in MongoDB rather than a SQL database.
func (c DatabaseConfig) UsesMongo() bool {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	return driver == "mongodb" || driver == "mongo"
}

// SQLConfig converts the database section into GORM connection options.
func (c DatabaseConfig) SQLConfig() database.Config {
	cfg := database.Config{
		Driver: c.Driver,
		Path:   c.Path,
		DSN:    c.DSN,
	}

	var host DBAuthConfig
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "postgres", "postgresql":
		host = c.Postgres
	case "mysql":
		host = c.MySQL
	default:
		return cfg
	}

	cfg.Host = host.Host
	cfg.Port = host.Port
	cfg.Name = host.Database
	cfg.User = host.Username
	cfg.Password = host.Password
	return cfg
}

// MongoConfig converts the mongodb section into driver options.
func (c DatabaseConfig) MongoConfig() database.MongoConfig {
	return database.MongoConfig{
		URI:            c.MongoDB.URI,
		Database:       c.MongoDB.Database,
		ConnectTimeout: c.MongoDB.ConnectTimeout,
	}
}
