package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrConfiguration = errors.New("invalid configuration")

const (
	BackendMyQ           = "myq"
	BackendHomeAssistant = "homeassistant"
	BackendTuya          = "tuya"
)

type Config struct {
	Garage        GarageConfig        `yaml:"garage"`
	MyQ           MyQConfig           `yaml:"myq"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Tuya          TuyaConfig          `yaml:"tuya"`
	Server        ServerConfig        `yaml:"server"`
	NATS          NATSConfig          `yaml:"nats"`
	Pushover      PushoverConfig      `yaml:"pushover"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Log           LogConfig           `yaml:"log"`
}

type GarageConfig struct {
	Backend string `yaml:"backend"`
	// Left is the position of the left door in the list the API returns.
	Left      int  `yaml:"left"`
	OnlyClose bool `yaml:"only_close"`
}

type MyQConfig struct {
	UserName string `yaml:"user_name"`
	Password string `yaml:"password"`
	BaseURL  string `yaml:"base_url"`
}

type HomeAssistantConfig struct {
	BaseURL  string   `yaml:"base_url"`
	Token    string   `yaml:"token"`
	Entities []string `yaml:"entities"`
}

type TuyaConfig struct {
	ClientID  string   `yaml:"client_id"`
	Secret    string   `yaml:"secret"`
	Region    string   `yaml:"region"`
	DeviceIDs []string `yaml:"device_ids"`
}

type ServerConfig struct {
	HTTPAddr       string `yaml:"http_addr"`
	AuthToken      string `yaml:"auth_token"`
	RateLimit      int    `yaml:"rate_limit"`
	RequestTimeout string `yaml:"request_timeout"`
}

type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the optional YAML file at path, then the .env files, then the
// environment. Values from the environment win over the file.
func Load(path string, envFiles ...string) (*Config, error) {
	// Missing .env files are normal outside development.
	_ = godotenv.Load(envFiles...)

	cfg := Config{
		Garage: GarageConfig{OnlyClose: true},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.MyQ.UserName, "USER_NAME")
	setString(&c.MyQ.Password, "PASSWORD")
	setString(&c.Garage.Backend, "GARAGE_BACKEND")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Server.HTTPAddr, "HTTP_ADDR")
	setString(&c.Server.AuthToken, "AUTH_TOKEN")
	setString(&c.HomeAssistant.Token, "HASS_TOKEN")
	setString(&c.Tuya.ClientID, "TUYA_CLIENT_ID")
	setString(&c.Tuya.Secret, "TUYA_SECRET")

	_, hasToken := lookup("PUSHOVER_TOKEN")
	_, hasUser := lookup("PUSHOVER_USER_KEY")
	if hasToken && hasUser {
		setString(&c.Pushover.Token, "PUSHOVER_TOKEN")
		setString(&c.Pushover.UserKey, "PUSHOVER_USER_KEY")
		c.Pushover.Enabled = true
	}

	if v, ok := lookup("NATS_URL"); ok {
		c.NATS.URL = v
		c.NATS.Enabled = true
	}

	if v, ok := lookup("LEFT"); ok {
		left, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: LEFT must be 0 or 1, got %q", ErrConfiguration, v)
		}
		c.Garage.Left = left
	}

	if v, ok := lookup("ONLY_CLOSE"); ok {
		onlyClose, err := ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: ONLY_CLOSE: %v", ErrConfiguration, err)
		}
		c.Garage.OnlyClose = onlyClose
	}

	return nil
}

func (c *Config) setDefaults() {
	if c.Garage.Backend == "" {
		c.Garage.Backend = BackendMyQ
	}
	if c.MyQ.BaseURL == "" {
		c.MyQ.BaseURL = "https://api.myqdevice.com"
	}
	if c.Tuya.Region == "" {
		c.Tuya.Region = "us"
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8080"
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 30
	}
	if c.Server.RequestTimeout == "" {
		c.Server.RequestTimeout = "10s"
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://localhost:4222"
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = "garage.alexa"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Garage.Backend = strings.ToLower(c.Garage.Backend)
}

// Validate reports every problem at once so a deployment can be fixed in one
// pass.
func (c *Config) Validate() error {
	var problems []string

	switch c.Garage.Backend {
	case BackendMyQ:
		if c.MyQ.UserName == "" {
			problems = append(problems, "USER_NAME environment variable needs to be set to your MyQ user name")
		}
		if c.MyQ.Password == "" {
			problems = append(problems, "PASSWORD environment variable needs to be set to your MyQ password")
		}
	case BackendHomeAssistant:
		if c.HomeAssistant.BaseURL == "" || c.HomeAssistant.Token == "" {
			problems = append(problems, "homeassistant.base_url and homeassistant.token are required")
		}
		if len(c.HomeAssistant.Entities) == 0 {
			problems = append(problems, "homeassistant.entities needs at least one cover entity")
		}
	case BackendTuya:
		if c.Tuya.ClientID == "" || c.Tuya.Secret == "" {
			problems = append(problems, "tuya.client_id and tuya.secret are required")
		}
		if len(c.Tuya.DeviceIDs) == 0 {
			problems = append(problems, "tuya.device_ids needs at least one garage door device")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown garage backend %q", c.Garage.Backend))
	}

	if c.Garage.Left != 0 && c.Garage.Left != 1 {
		problems = append(problems, fmt.Sprintf("LEFT must be 0 or 1, got %d", c.Garage.Left))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, ", "))
	}
	return nil
}

// ParseBool accepts the spellings people use in environment files: y/yes,
// n/no, on/off as well as the ones strconv understands.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "on", "t", "true", "1":
		return true, nil
	case "n", "no", "off", "f", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", s)
	}
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}
