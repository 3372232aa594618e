package config

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnString returns the connection string for the configured driver.
// DB_DSN wins over the individual DB_* fields.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "mysql":
		port := d.Port
		if port == "" {
			port = "3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.User, d.Password, d.Host, port, d.Name)
	case "postgres":
		port := d.Port
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			d.Host, port, d.User, d.Password, d.Name)
	default:
		return d.Name + ".db"
	}
}

func (d DatabaseConfig) dialector() (gorm.Dialector, error) {
	switch d.Driver {
	case "sqlite":
		return sqlite.Open(d.ConnString()), nil
	case "mysql":
		return mysql.Open(d.ConnString()), nil
	case "postgres":
		return postgres.Open(d.ConnString()), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", d.Driver)
}

// InitDB opens the configured database.
func InitDB(cfg *Config) (*gorm.DB, error) {
	dialector, err := cfg.Database.dialector()
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{}
	if cfg.GinMode == "release" {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", cfg.Database.Driver, err)
	}
	return db, nil
}
