package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/campushub/notifier/internal/security/secretbox"
)

// ErrConfig marks fatal configuration problems. The process must not start
// when Load returns an error wrapping it.
var ErrConfig = errors.New("config")

// Duration accepts "15m" style values in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std converts back to the standard type.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Account is one credentialed sender identity. Immutable after Load.
type Account struct {
	Address     string `yaml:"address"`
	Password    string `yaml:"password"`
	PasswordEnc string `yaml:"password_enc"` // base64(nonce)|base64(ciphertext), see secretbox
	Priority    int    `yaml:"priority"`     // lower = tried first
	DailyLimit  int    `yaml:"daily_limit"`
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
		FromName           string `yaml:"from_name"`
	} `yaml:"smtp"`

	Accounts []Account `yaml:"accounts"`

	Queue struct {
		Workers  int `yaml:"workers"`
		Capacity int `yaml:"capacity"`
	} `yaml:"queue"`

	Verify struct {
		CodeTTL        Duration `yaml:"code_ttl"`
		SweepInterval  Duration `yaml:"sweep_interval"`
		ResendCooldown Duration `yaml:"resend_cooldown"`
		SendTimeout    Duration `yaml:"send_timeout"`
		Subject        string        `yaml:"subject"`
	} `yaml:"verify"`

	Auth struct {
		// APISecret signs/verifies HS256 bearer tokens for the /v1 API.
		// Empty disables auth (dev only).
		APISecret string `yaml:"api_secret"`
	} `yaml:"auth"`

	Rate struct {
		Enabled bool   `yaml:"enabled"`
		Kind    string `yaml:"kind"` // memory | redis
		Redis   struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Send struct {
			Limit  int      `yaml:"limit"`
			Window Duration `yaml:"window"`
		} `yaml:"send"`
	} `yaml:"rate"`

	Journal struct {
		// DSN enables the Postgres delivery journal when non-empty.
		DSN string `yaml:"dsn"`
	} `yaml:"journal"`

	Security struct {
		// MasterKey decrypts Account.PasswordEnc (base64/hex, 32 bytes).
		MasterKey string `yaml:"master_key"`
	} `yaml:"security"`
}

// Load reads the YAML file at path, applies defaults and env overrides,
// decrypts account credentials and validates the result.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.decryptAccounts(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	// Ranked ascending by priority once at startup; ties keep file order.
	sort.SliceStable(c.Accounts, func(i, j int) bool {
		return c.Accounts[i].Priority < c.Accounts[j].Priority
	})

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8087"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 465
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "ssl"
	}
	if c.SMTP.FromName == "" {
		c.SMTP.FromName = "CampusHub"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 3
	}
	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = 100
	}
	if c.Verify.CodeTTL == 0 {
		c.Verify.CodeTTL = Duration(15 * time.Minute)
	}
	if c.Verify.SweepInterval == 0 {
		c.Verify.SweepInterval = Duration(time.Minute)
	}
	if c.Verify.ResendCooldown == 0 {
		c.Verify.ResendCooldown = Duration(time.Minute)
	}
	if c.Verify.SendTimeout == 0 {
		c.Verify.SendTimeout = Duration(time.Minute)
	}
	if c.Verify.Subject == "" {
		c.Verify.Subject = "Your verification code"
	}
	if c.Rate.Kind == "" {
		c.Rate.Kind = "memory"
	}
	if c.Rate.Send.Limit == 0 {
		c.Rate.Send.Limit = 5
	}
	if c.Rate.Send.Window == 0 {
		c.Rate.Send.Window = Duration(10 * time.Minute)
	}
	for i := range c.Accounts {
		if c.Accounts[i].Priority == 0 {
			c.Accounts[i].Priority = 1
		}
		if c.Accounts[i].DailyLimit == 0 {
			c.Accounts[i].DailyLimit = 50
		}
	}
}

// applyEnvOverrides lets the environment win over the YAML file.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = v
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}
	if v, ok := getEnvInt("QUEUE_WORKERS"); ok {
		c.Queue.Workers = v
	}
	if v, ok := getEnvInt("QUEUE_CAPACITY"); ok {
		c.Queue.Capacity = v
	}
	if v, ok := getEnvDur("VERIFY_CODE_TTL"); ok {
		c.Verify.CodeTTL = Duration(v)
	}
	if v, ok := getEnvDur("VERIFY_SWEEP_INTERVAL"); ok {
		c.Verify.SweepInterval = Duration(v)
	}
	if v, ok := getEnvDur("VERIFY_RESEND_COOLDOWN"); ok {
		c.Verify.ResendCooldown = Duration(v)
	}
	if v, ok := getEnvDur("VERIFY_SEND_TIMEOUT"); ok {
		c.Verify.SendTimeout = Duration(v)
	}
	if v, ok := getEnvStr("API_SECRET"); ok {
		c.Auth.APISecret = v
	}
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("RATE_KIND"); ok {
		c.Rate.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Rate.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Rate.Redis.DB = v
	}
	if v, ok := getEnvStr("JOURNAL_DSN"); ok {
		c.Journal.DSN = v
	}
	if v, ok := getEnvStr("NOTIFIER_MASTER_KEY"); ok {
		c.Security.MasterKey = v
	}
}

// decryptAccounts resolves PasswordEnc into Password for accounts that
// carry an encrypted credential.
func (c *Config) decryptAccounts() error {
	for i := range c.Accounts {
		a := &c.Accounts[i]
		if a.PasswordEnc == "" || a.Password != "" {
			continue
		}
		if c.Security.MasterKey == "" {
			return fmt.Errorf("%w: account %s has password_enc but no master key is configured", ErrConfig, a.Address)
		}
		pw, err := secretbox.DecryptWithKey(c.Security.MasterKey, a.PasswordEnc)
		if err != nil {
			return fmt.Errorf("%w: decrypt credential for %s: %v", ErrConfig, a.Address, err)
		}
		a.Password = pw
	}
	return nil
}

// Validate enforces the fatal-at-startup rules: a relay host and at least
// one complete credential pair must be present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SMTP.Host) == "" {
		return fmt.Errorf("%w: smtp.host is required (or SMTP_HOST)", ErrConfig)
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("%w: smtp.port %d out of range", ErrConfig, c.SMTP.Port)
	}
	switch c.SMTP.TLS {
	case "auto", "starttls", "ssl", "none":
	default:
		return fmt.Errorf("%w: smtp.tls must be auto|starttls|ssl|none, got %q", ErrConfig, c.SMTP.TLS)
	}
	usable := 0
	for _, a := range c.Accounts {
		if strings.TrimSpace(a.Address) == "" {
			return fmt.Errorf("%w: account with empty address", ErrConfig)
		}
		if a.Password != "" {
			usable++
		}
	}
	if usable == 0 {
		return fmt.Errorf("%w: at least one account with credentials is required", ErrConfig)
	}
	if c.Queue.Workers < 1 {
		return fmt.Errorf("%w: queue.workers must be >= 1", ErrConfig)
	}
	if c.Queue.Capacity < 1 {
		return fmt.Errorf("%w: queue.capacity must be >= 1", ErrConfig)
	}
	if c.Rate.Kind == "redis" && strings.TrimSpace(c.Rate.Redis.Addr) == "" {
		return fmt.Errorf("%w: rate.redis.addr is required when rate.kind=redis", ErrConfig)
	}
	return nil
}

// ---- env helpers ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
