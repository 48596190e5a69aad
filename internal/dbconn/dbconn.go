// Package dbconn turns endpoint settings into open database handles.
package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
	go_ora "github.com/sijms/go-ora/v2"
)

// Endpoint is one side of the migration (source or target).
type Endpoint struct {
	Name     string `mapstructure:"name"`
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Schema   string `mapstructure:"schema"`
}

var defaultPorts = map[string]int{
	"postgres":  5432,
	"pgx":       5432,
	"mysql":     3306,
	"sqlserver": 1433,
	"mssql":     1433,
	"oracle":    1521,
}

func (e Endpoint) port() int {
	if e.Port > 0 {
		return e.Port
	}
	return defaultPorts[e.Driver]
}

// ConnString returns the driver connection string. An explicit DSN wins over
// the discrete fields.
func (e Endpoint) ConnString() (string, error) {
	if e.DSN != "" {
		return e.DSN, nil
	}
	if e.Driver != "sqlite3" && e.Host == "" {
		return "", fmt.Errorf("%s: host or dsn is required", e.label())
	}
	if e.Database == "" {
		return "", fmt.Errorf("%s: database or dsn is required", e.label())
	}

	hostPort := net.JoinHostPort(e.Host, strconv.Itoa(e.port()))

	switch e.Driver {
	case "postgres", "pgx":
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(e.User, e.Password),
			Host:     hostPort,
			Path:     "/" + e.Database,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil
	case "mysql":
		cfg := mysql.NewConfig()
		cfg.User = e.User
		cfg.Passwd = e.Password
		cfg.Net = "tcp"
		cfg.Addr = hostPort
		cfg.DBName = e.Database
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	case "sqlserver", "mssql":
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(e.User, e.Password),
			Host:     hostPort,
			RawQuery: url.Values{"database": {e.Database}}.Encode(),
		}
		return u.String(), nil
	case "oracle":
		return go_ora.BuildUrl(e.Host, e.port(), e.Database, e.User, e.Password, nil), nil
	case "sqlite3", "sqlite":
		return e.Database, nil
	}
	return "", fmt.Errorf("%s: unsupported driver %q", e.label(), e.Driver)
}

func (e Endpoint) label() string {
	if e.Name != "" {
		return e.Name
	}
	return "endpoint"
}

// DriverName maps config aliases to registered database/sql driver names.
func (e Endpoint) DriverName() string {
	switch e.Driver {
	case "sqlite":
		return "sqlite3"
	case "mssql":
		return "sqlserver"
	}
	return e.Driver
}

// Open opens and pings the endpoint.
func Open(ctx context.Context, e Endpoint) (*sql.DB, error) {
	if e.Driver == "" {
		return nil, fmt.Errorf("%s: driver is required", e.label())
	}
	conn, err := e.ConnString()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(e.DriverName(), conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s db: %w", e.label(), err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s db: %w", e.label(), err)
	}
	return db, nil
}
