package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Developer     DeveloperConfig
	Verification  VerificationConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BOZORCHI_APP_ENV" required:"true"`
	Port         string `envconfig:"BOZORCHI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BOZORCHI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BOZORCHI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BOZORCHI_DB_DSN"`
	Driver string `envconfig:"BOZORCHI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOZORCHI_DB_HOST"`
	LegacyPort     int    `envconfig:"BOZORCHI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOZORCHI_DB_USER"`
	LegacyPassword string `envconfig:"BOZORCHI_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOZORCHI_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOZORCHI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOZORCHI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOZORCHI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOZORCHI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOZORCHI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOZORCHI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BOZORCHI_REDIS_ADDR"`
	Password     string        `envconfig:"BOZORCHI_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOZORCHI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOZORCHI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOZORCHI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOZORCHI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOZORCHI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOZORCHI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig carries the paired signing secrets. Access and refresh tokens are
// never signed with the same key.
type JWTConfig struct {
	AccessSecret      string `envconfig:"BOZORCHI_JWT_ACCESS_SECRET" required:"true"`
	RefreshSecret     string `envconfig:"BOZORCHI_JWT_REFRESH_SECRET" required:"true"`
	Issuer            string `envconfig:"BOZORCHI_JWT_ISSUER" required:"true"`
	AccessTTLMinutes  int    `envconfig:"BOZORCHI_JWT_ACCESS_TTL_MINUTES" default:"15"`
	RefreshTTLMinutes int    `envconfig:"BOZORCHI_JWT_REFRESH_TTL_MINUTES" default:"10080"`
}

// AccessTTL returns the access token lifetime.
func (j JWTConfig) AccessTTL() time.Duration {
	if j.AccessTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.AccessTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (j JWTConfig) RefreshTTL() time.Duration {
	if j.RefreshTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BOZORCHI_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BOZORCHI_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BOZORCHI_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BOZORCHI_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BOZORCHI_ARGON_KEY_LEN" default:"32"`
}

// DeveloperConfig holds the reserved developer login. When the configured
// phone logs in with the developer key as password, the platform admin record
// is resolved instead of a regular user.
type DeveloperConfig struct {
	Phone string `envconfig:"BOZORCHI_DEVELOPER_PHONE"`
	Key   string `envconfig:"BOZORCHI_DEVELOPER_KEY"`
}

// Enabled reports whether the developer login path is configured at all.
func (d DeveloperConfig) Enabled() bool {
	return strings.TrimSpace(d.Phone) != "" && strings.TrimSpace(d.Key) != ""
}

type VerificationConfig struct {
	CodeTTL    time.Duration `envconfig:"BOZORCHI_VERIFICATION_CODE_TTL" default:"10m"`
	CodeLength int           `envconfig:"BOZORCHI_VERIFICATION_CODE_LENGTH" default:"4"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BOZORCHI_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginPhoneLimit    int           `envconfig:"BOZORCHI_AUTH_RATE_LIMIT_LOGIN_PHONE_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BOZORCHI_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BOZORCHI_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterPhoneLimit int           `envconfig:"BOZORCHI_AUTH_RATE_LIMIT_REGISTER_PHONE_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BOZORCHI_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BOZORCHI_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
