// Package database provides relational database configuration options.
package database

import (
	"fmt"
	"os"
	"time"

	"github.com/kart-io/agent-studio/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Options contains relational database configuration.
type Options struct {
	// Driver selects the database driver (sqlite or mysql).
	Driver string `json:"driver" mapstructure:"driver"`

	// Path is the database file path (sqlite only).
	Path string `json:"path" mapstructure:"path"`

	// Host is the database server host (mysql only).
	Host string `json:"host" mapstructure:"host"`

	// Port is the database server port (mysql only).
	Port int `json:"port" mapstructure:"port"`

	// Username for authentication (mysql only).
	Username string `json:"username" mapstructure:"username"`

	// Password for authentication (mysql only).
	Password string `json:"-" mapstructure:"password"`

	// Database is the schema name (mysql only).
	Database string `json:"database" mapstructure:"database"`

	// MaxIdleConnections limits idle connections in the pool.
	MaxIdleConnections int `json:"max-idle-connections" mapstructure:"max-idle-connections"`

	// MaxOpenConnections limits open connections in the pool.
	MaxOpenConnections int `json:"max-open-connections" mapstructure:"max-open-connections"`

	// MaxConnectionLifeTime bounds the lifetime of pooled connections.
	MaxConnectionLifeTime time.Duration `json:"max-connection-life-time" mapstructure:"max-connection-life-time"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Driver:                DriverSQLite,
		Path:                  "data/agent-studio.db",
		Host:                  "127.0.0.1",
		Port:                  3306,
		Username:              "root",
		MaxIdleConnections:    10,
		MaxOpenConnections:    100,
		MaxConnectionLifeTime: 10 * time.Second,
	}
}

// AddFlags adds flags for database options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Driver, options.Join(prefixes...)+"database.driver", o.Driver, "Database driver (sqlite or mysql).")
	fs.StringVar(&o.Path, options.Join(prefixes...)+"database.path", o.Path, "SQLite database file path.")
	fs.StringVar(&o.Host, options.Join(prefixes...)+"database.host", o.Host, "MySQL server host.")
	fs.IntVar(&o.Port, options.Join(prefixes...)+"database.port", o.Port, "MySQL server port.")
	fs.StringVar(&o.Username, options.Join(prefixes...)+"database.username", o.Username, "MySQL username.")
	fs.StringVar(&o.Password, options.Join(prefixes...)+"database.password", o.Password, "MySQL password (DEPRECATED: use MYSQL_PASSWORD env var instead).")
	fs.StringVar(&o.Database, options.Join(prefixes...)+"database.database", o.Database, "MySQL database name.")
	fs.IntVar(&o.MaxIdleConnections, options.Join(prefixes...)+"database.max-idle-connections", o.MaxIdleConnections, "Maximum idle connections.")
	fs.IntVar(&o.MaxOpenConnections, options.Join(prefixes...)+"database.max-open-connections", o.MaxOpenConnections, "Maximum open connections.")
	fs.DurationVar(&o.MaxConnectionLifeTime, options.Join(prefixes...)+"database.max-connection-life-time", o.MaxConnectionLifeTime, "Maximum connection lifetime.")
}

// Validate validates the database options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error

	switch o.Driver {
	case DriverSQLite:
		if o.Path == "" {
			errs = append(errs, fmt.Errorf("database.path is required for sqlite driver"))
		}
	case DriverMySQL:
		if o.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required for mysql driver"))
		}
		if o.Database == "" {
			errs = append(errs, fmt.Errorf("database.database is required for mysql driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver: %s", o.Driver))
	}

	return errs
}

// Complete completes the database options with defaults.
func (o *Options) Complete() error {
	if o.Driver == DriverMySQL && o.Password == "" {
		o.Password = os.Getenv("MYSQL_PASSWORD")
	}
	return nil
}

// DSN returns the MySQL data source name.
func (o *Options) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		o.Username, o.Password, o.Host, o.Port, o.Database)
}
