package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Interest modes select how far neighbors of a room are computed.
const (
	InterestModeGraph    = "graph"
	InterestModeDistance = "distance"
)

// Config holds server configuration loaded from environment variables.
type Config struct {
	Addr       string
	AssetsPath string
	LayoutPath string

	VerboseOutput   bool
	RainbowMode     bool
	RainbowInterval time.Duration
	RainbowStep     float64
	Colors          []string

	SyncInterval     time.Duration
	FastSyncInterval time.Duration

	InterestMode   string
	InterestHops   int
	InterestRadius float64

	LayoutRows int
	LayoutCols int
	LayoutSeed int64

	JWTSecret         string
	JWTIssuer         string
	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string
	CORSOrigins       []string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load merges an optional .env file into the environment and builds a Config from it.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] could not read .env file: %v", err)
	}

	cfg := Config{
		Addr:       getEnv("SERVER_ADDR", ":8080"),
		AssetsPath: getEnv("ASSETS_PATH", "./assets"),
		LayoutPath: getEnv("LAYOUT_PATH", ""),

		VerboseOutput:   getEnv("VERBOSE_OUTPUT", "false") == "true",
		RainbowMode:     getEnv("RAINBOW_MODE", "false") == "true",
		RainbowInterval: parseDuration(getEnv("RAINBOW_INTERVAL", "10ms"), 10*time.Millisecond),
		RainbowStep:     parseFloat(getEnv("RAINBOW_STEP", "2"), 2),
		Colors:          parseList(getEnv("STRIPE_COLORS", ""), DefaultColors),

		SyncInterval:     parseDuration(getEnv("SYNC_INTERVAL", "1s"), time.Second),
		FastSyncInterval: parseDuration(getEnv("FAST_SYNC_INTERVAL", "500ms"), 500*time.Millisecond),

		InterestMode:   strings.ToLower(getEnv("INTEREST_MODE", InterestModeGraph)),
		InterestHops:   parseInt(getEnv("INTEREST_HOPS", "2"), 2),
		InterestRadius: parseFloat(getEnv("INTEREST_RADIUS", "40"), 40),

		LayoutRows: parseInt(getEnv("LAYOUT_ROWS", "4"), 4),
		LayoutCols: parseInt(getEnv("LAYOUT_COLS", "5"), 5),
		LayoutSeed: int64(parseInt(getEnv("LAYOUT_SEED", "0"), 0)),

		JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:         getEnv("JWT_ISSUER", "colorfulez-server"),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:     getEnv("ADMIN_PASSWORD", "ChangeMe1!"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		CORSOrigins:       parseList(getEnv("CORS_ORIGINS", ""), []string{"*"}),

		ReadTimeout:  parseDuration(getEnv("API_READ_TIMEOUT", "15s"), 15*time.Second),
		WriteTimeout: parseDuration(getEnv("API_WRITE_TIMEOUT", "15s"), 15*time.Second),
	}
	if cfg.JWTSecret == "dev-secret-change-me" {
		log.Println("[WARN] Using default JWT secret; set JWT_SECRET in production")
	}
	if cfg.AdminPasswordHash == "" && cfg.AdminPassword == "ChangeMe1!" {
		log.Println("[WARN] Using default admin password; set ADMIN_PASSWORD_HASH in production")
	}
	return cfg
}

// Validate reports the first setting that would leave the sweeps or the index unusable.
func (c Config) Validate() error {
	if c.SyncInterval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive, got %s", c.SyncInterval)
	}
	if c.FastSyncInterval <= 0 {
		return fmt.Errorf("FAST_SYNC_INTERVAL must be positive, got %s", c.FastSyncInterval)
	}
	if c.RainbowMode && c.RainbowInterval <= 0 {
		return fmt.Errorf("RAINBOW_INTERVAL must be positive, got %s", c.RainbowInterval)
	}
	switch c.InterestMode {
	case InterestModeGraph:
		if c.InterestHops < 0 {
			return fmt.Errorf("INTEREST_HOPS must not be negative, got %d", c.InterestHops)
		}
	case InterestModeDistance:
		if c.InterestRadius <= 0 {
			return fmt.Errorf("INTEREST_RADIUS must be positive, got %g", c.InterestRadius)
		}
	default:
		return fmt.Errorf("unknown INTEREST_MODE %q", c.InterestMode)
	}
	if c.LayoutPath == "" && (c.LayoutRows <= 0 || c.LayoutCols <= 0) {
		return fmt.Errorf("generated layout needs positive LAYOUT_ROWS and LAYOUT_COLS")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseList(s string, def []string) []string {
	if strings.TrimSpace(s) == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
