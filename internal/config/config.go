package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Server ServerConfig

	// Clerk identity provider
	Clerk ClerkConfig

	// Remote persona document
	Persona PersonaConfig

	// Gemini AI
	Gemini GeminiConfig

	// Chat turn limits
	Chat ChatConfig

	// Optional backing services. Empty disables the feature.
	DatabaseURL string
	RedisURL    string
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	PublicDir string
	EmbedURL  string
}

type ClerkConfig struct {
	PublishableKey    string
	SecretKey         string
	JWTKey            string // PEM encoded public key for networkless verification
	APIURL            string
	AuthorizedParties []string
}

type PersonaConfig struct {
	Token        string
	APIURL       string
	Owner        string
	Repo         string
	Path         string
	FetchTimeout time.Duration
	CacheTTL     time.Duration
}

type GeminiConfig struct {
	APIKey          string
	Model           string
	MaxOutputTokens int
	Timeout         time.Duration
}

type ChatConfig struct {
	MaxHistoryTurns int
	MaxHistoryChars int
	RatePerMinute   int
	RateBurst       int
}

// Load reads configuration once at process start. Credentials may be empty;
// the components that need them report a missing credential when called.
func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:      getEnvOrDefault("PORT", "3000"),
			Env:       getEnvOrDefault("ENV", "development"),
			LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
			PublicDir: getEnvOrDefault("PUBLIC_DIR", "./public"),
			EmbedURL:  getEnvOrDefault("EMBED_URL", ""),
		},
		Clerk: ClerkConfig{
			PublishableKey:    getEnvOrDefault("CLERK_PUBLISHABLE_KEY", ""),
			SecretKey:         getEnvOrDefault("CLERK_SECRET_KEY", ""),
			JWTKey:            getEnvOrDefault("CLERK_JWT_KEY", ""),
			APIURL:            getEnvOrDefault("CLERK_API_URL", "https://api.clerk.com"),
			AuthorizedParties: getEnvAsListOrDefault("CLERK_AUTHORIZED_PARTIES", nil),
		},
		Persona: PersonaConfig{
			Token:        getEnvOrDefault("SOUL_REPO_TOKEN", ""),
			APIURL:       getEnvOrDefault("GITHUB_API_URL", "https://api.github.com"),
			Owner:        getEnvOrDefault("SOUL_REPO_OWNER", "fnqureshi"),
			Repo:         getEnvOrDefault("SOUL_REPO_NAME", "aura-citadel-soul"),
			Path:         getEnvOrDefault("SOUL_PROMPT_PATH", "personas/sovereign_scribe_endo.md"),
			FetchTimeout: getEnvAsDurationOrDefault("PERSONA_FETCH_TIMEOUT", 10*time.Second),
			CacheTTL:     getEnvAsDurationOrDefault("PERSONA_CACHE_TTL", 0),
		},
		Gemini: GeminiConfig{
			APIKey:          getEnvOrDefault("GEMINI_API_KEY", ""),
			Model:           getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
			MaxOutputTokens: getEnvAsIntOrDefault("GEMINI_MAX_OUTPUT_TOKENS", 1000),
			Timeout:         getEnvAsDurationOrDefault("MODEL_TIMEOUT", 60*time.Second),
		},
		Chat: ChatConfig{
			MaxHistoryTurns: getEnvAsIntOrDefault("MAX_HISTORY_TURNS", 40),
			MaxHistoryChars: getEnvAsIntOrDefault("MAX_HISTORY_CHARS", 32000),
			RatePerMinute:   getEnvAsIntOrDefault("CHAT_RATE_PER_MINUTE", 20),
			RateBurst:       getEnvAsIntOrDefault("CHAT_RATE_BURST", 5),
		},
		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:    getEnvOrDefault("REDIS_URL", ""),
	}

	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

// getEnvAsListOrDefault splits a comma separated value, dropping blanks.
func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
