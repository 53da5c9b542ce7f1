package config

import (
	"os"
	"strconv"
	"strings"
)

// DefaultMasterKey is a development-only encryption key. Production
// deployments must set ENCRYPTION_MASTER_KEY; startup refuses the default
// when ENV=production.
const DefaultMasterKey = "archinsight-dev-master-key"

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string
	Env        string
	LogLevel   string

	DBType     string // mysql or sqlite
	MySQLDSN   string
	SQLitePath string

	RedisAddr string
	RedisDB   int
	RedisPass string

	// Session settings.
	SessionTTLHours   int
	SessionTokenBytes int

	// Encryption settings.
	MasterKey           string
	AllowInsecureCipher bool

	// Comma-separated personal numbers granted admin role by the seeder.
	AdminPersonalNumbers []string

	// GitHub backup collaborator. Backup is disabled when Token is empty.
	GitHubToken  string
	GitHubOwner  string
	GitHubRepo   string
	GitHubBranch string
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		Env:        getEnv("ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		DBType:     getEnv("DB_TYPE", "mysql"),
		MySQLDSN:   getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/archinsight?charset=utf8mb4&parseTime=True&loc=Local"),
		SQLitePath: getEnv("SQLITE_PATH", "archinsight.db"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		RedisPass: os.Getenv("REDIS_PASSWORD"),

		SessionTTLHours:   getEnvInt("SESSION_TTL_HOURS", 24),
		SessionTokenBytes: getEnvInt("SESSION_TOKEN_BYTES", 32),

		MasterKey:           getEnv("ENCRYPTION_MASTER_KEY", DefaultMasterKey),
		AllowInsecureCipher: getEnvBool("ALLOW_INSECURE_CIPHER", false),

		AdminPersonalNumbers: splitList(getEnv("ADMIN_PERSONAL_NUMBERS", "ADMIN001")),

		GitHubToken:  os.Getenv("GITHUB_TOKEN"),
		GitHubOwner:  os.Getenv("GITHUB_OWNER"),
		GitHubRepo:   os.Getenv("GITHUB_REPO"),
		GitHubBranch: getEnv("GITHUB_DATA_BRANCH", "user-data"),
	}
}

// IsProduction reports whether the app runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsingDefaultMasterKey reports whether the development master key is in use.
func (c *Config) UsingDefaultMasterKey() bool {
	return c.MasterKey == DefaultMasterKey
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
