package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMemory        = "memory"
	DriverHomeAssistant = "homeassistant"
)

type HubConfig struct {
	Host     string `mapstructure:"host"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type DriverConfig struct {
	Kind string `mapstructure:"kind"`
}

type HomeAssistantConfig struct {
	URL       string        `mapstructure:"url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rateLimit"`
	Burst     int           `mapstructure:"burst"`
	CacheTTL  time.Duration `mapstructure:"cacheTTL"`
	// Entities maps light names to entity ids.
	Entities         map[string]string `mapstructure:"entities"`
	ToHAFormula      string            `mapstructure:"toHAFormula"`
	ToAwesomeFormula string            `mapstructure:"toAwesomeFormula"`
}

type BridgeConfig struct {
	// AdvertiseIP is the address announced over SSDP; empty means autodetect.
	AdvertiseIP  string `mapstructure:"advertiseIP"`
	RegistryPath string `mapstructure:"registryPath"`
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

type SSDPConfig struct {
	Enable bool `mapstructure:"enable"`
	// HTTPPort overrides the advertised port, e.g. behind port forwarding. 0 uses the port of http.addr.
	HTTPPort int `mapstructure:"httpPort"`
}

// LumberjackConfig configures log file rotation.
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

type Config struct {
	Hub           HubConfig           `mapstructure:"hub"`
	Driver        DriverConfig        `mapstructure:"driver"`
	HomeAssistant HomeAssistantConfig `mapstructure:"homeassistant"`
	Bridge        BridgeConfig        `mapstructure:"bridge"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	SSDP          SSDPConfig          `mapstructure:"ssdp"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

// Load reads configuration from a YAML/TOML/JSON file and AWESOMELIGHTS_* environment variables.
// An empty path falls back to AWESOMELIGHTS_CONFIG, then to ./awesomelights.yaml or ./configs/awesomelights.yaml.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("AWESOMELIGHTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("awesomelights")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Driver.Kind {
	case DriverMemory:
	case DriverHomeAssistant:
		if c.HomeAssistant.URL == "" || c.HomeAssistant.Token == "" {
			return errors.New("config: homeassistant driver needs homeassistant.url and homeassistant.token")
		}
	default:
		return fmt.Errorf("config: unknown driver kind %q", c.Driver.Kind)
	}
	if c.Hub.Username == "" {
		return errors.New("config: hub.username is required")
	}
	if _, err := c.AdvertisedPort(); err != nil {
		return err
	}
	return nil
}

// AdvertisedPort is the HTTP port announced in description.xml and SSDP replies.
func (c *Config) AdvertisedPort() (int, error) {
	if c.SSDP.HTTPPort > 0 {
		return c.SSDP.HTTPPort, nil
	}
	_, port, err := net.SplitHostPort(c.HTTP.Addr)
	if err != nil {
		return 0, fmt.Errorf("config: http.addr %q: %w", c.HTTP.Addr, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 {
		return 0, fmt.Errorf("config: http.addr %q needs a numeric port or ssdp.httpPort", c.HTTP.Addr)
	}
	return p, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("hub.host", "awesomelights.local")
	v.SetDefault("hub.username", "admin")
	v.SetDefault("hub.password", "")

	v.SetDefault("driver.kind", DriverMemory)

	v.SetDefault("homeassistant.url", "")
	v.SetDefault("homeassistant.token", "")
	v.SetDefault("homeassistant.timeout", "10s")
	v.SetDefault("homeassistant.rateLimit", 10)
	v.SetDefault("homeassistant.burst", 5)
	v.SetDefault("homeassistant.cacheTTL", "2s")
	v.SetDefault("homeassistant.toHAFormula", "")
	v.SetDefault("homeassistant.toAwesomeFormula", "")

	v.SetDefault("bridge.advertiseIP", "")
	v.SetDefault("bridge.registryPath", "data/devices.json")

	v.SetDefault("http.addr", ":80")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("ssdp.enable", true)
	v.SetDefault("ssdp.httpPort", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")
}
