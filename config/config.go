package config

import (
	"os"
	"path"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageJSON     = "json"
	StorageBolt     = "bolt"
	StoragePostgres = "postgres"
)

// SysConfig System config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// LogConfig logger config
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// StorageConfig record store config
type StorageConfig struct {
	Type     string `yaml:"type"` // json | bolt | postgres
	Dir      string `yaml:"dir"`
	BoltFile string `yaml:"bolt_file"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
}

// ShopConfig business limits
type ShopConfig struct {
	MaxCartAdd        int           `yaml:"max_cart_add"`
	LowStockThreshold int           `yaml:"low_stock_threshold"`
	MinPasswordLength int           `yaml:"min_password_length"`
	StrictRelease     bool          `yaml:"strict_release"`
	OrphanOrderAge    time.Duration `yaml:"orphan_order_age"`
	Currency          string        `yaml:"currency"`
}

// JobsConfig cron specs of the background jobs
type JobsConfig struct {
	LowStockScan    string `yaml:"low_stock_scan"`
	OrphanOrderScan string `yaml:"orphan_order_scan"`
	SalesSnapshot   string `yaml:"sales_snapshot"`
}

type AppConfig struct {
	System  SysConfig     `yaml:"system"`
	Logger  LogConfig     `yaml:"logger"`
	Storage StorageConfig `yaml:"storage"`
	Shop    ShopConfig    `yaml:"shop"`
	Jobs    JobsConfig    `yaml:"jobs"`
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

// GetSessionFile returns the file holding the logged in account
func (c *AppConfig) GetSessionFile() string {
	return path.Join(c.System.Workdir, "session.json")
}

// InitDirs creates the working directories
func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.System.Workdir, c.GetDataDir(), c.GetLogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = cast.ToBool(evalue)
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	p, err := cast.ToIntE(evalue)
	if err == nil {
		*val = p
	}
}

// DefaultAppConfig returns the built-in configuration
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "OCSS",
			Location: "Local",
			Workdir:  "./ocss_data",
			Debug:    false,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: false,
			Filename:   "",
		},
		Storage: StorageConfig{
			Type:     StorageJSON,
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "ocss",
			User:     "postgres",
			Passwd:   "postgres",
			MaxConn:  20,
			IdleConn: 5,
		},
		Shop: ShopConfig{
			MaxCartAdd:        50,
			LowStockThreshold: 5,
			MinPasswordLength: 8,
			StrictRelease:     false,
			OrphanOrderAge:    30 * time.Minute,
			Currency:          "USD",
		},
		Jobs: JobsConfig{
			LowStockScan:    "@every 5m",
			OrphanOrderScan: "@every 15m",
			SalesSnapshot:   "@hourly",
		},
	}
}

// LoadConfig reads cfile when it exists, then applies environment overrides
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	setEnvValue("OCSS_WORKDIR", &cfg.System.Workdir)
	setEnvBoolValue("OCSS_DEBUG", &cfg.System.Debug)
	setEnvValue("OCSS_LOGGER_MODE", &cfg.Logger.Mode)

	setEnvValue("OCSS_STORAGE_TYPE", &cfg.Storage.Type)
	setEnvValue("OCSS_STORAGE_DIR", &cfg.Storage.Dir)
	setEnvValue("OCSS_DB_HOST", &cfg.Storage.Host)
	setEnvIntValue("OCSS_DB_PORT", &cfg.Storage.Port)
	setEnvValue("OCSS_DB_NAME", &cfg.Storage.Name)
	setEnvValue("OCSS_DB_USER", &cfg.Storage.User)
	setEnvValue("OCSS_DB_PWD", &cfg.Storage.Passwd)

	setEnvBoolValue("OCSS_STRICT_RELEASE", &cfg.Shop.StrictRelease)
	setEnvIntValue("OCSS_LOW_STOCK_THRESHOLD", &cfg.Shop.LowStockThreshold)

	if cfg.Logger.FileEnable && cfg.Logger.Filename == "" {
		cfg.Logger.Filename = path.Join(cfg.GetLogDir(), "ocss.log")
	}
	return cfg, nil
}
