// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"kitsbackend/internal/logger"
)

// Variables available everywhere
var (
	baseDir       string
	dataDirectory string
	logsDirectory string

	DatabasePath string
	KitSeedFile  string
	LogFileFormat string
)

// StreakRules controls the consecutive-daily-claim chain.
type StreakRules struct {
	Enable       bool
	DailyKitName string
	// Rewards maps a reward kit name to the streak length that grants it.
	Rewards map[string]int
}

// TeamUnlockRules gates the two size-locked kits and their notifications.
type TeamUnlockRules struct {
	Enable      bool
	KitAt3      string
	KitAt4      string
	RemoveAbove int
	Notify      bool
}

// AutoKitRules drives kit auto-selection on connect/respawn triggers.
type AutoKitRules struct {
	OnFirstConnect []string
	OnRespawn      []string
	OnConnect      []string
	Priority       map[string]int // kit name -> weight, unlisted = 0
}

// EngineSettings is everything the claim engine reads from the environment.
type EngineSettings struct {
	UseEconomics        bool
	UseServerRewards    bool
	CurrencyFormat      string
	AllowAuthLevelAdmin bool

	Streaks    StreakRules
	TeamUnlock TeamUnlockRules
	AutoKits   AutoKitRules
}

//
// --- Utility Helpers ---
//

// Helper: get a setting based on ENVIRONMENT (dev or prod)
func GetEnvBasedSetting(base string) string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}
	return os.Getenv(fmt.Sprintf("%s_%s", base, strings.ToUpper(env)))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		logger.LogWarn("Ignoring non-numeric value for %s: %q", key, v)
	}
	return fallback
}

// envList splits a comma-separated env value, trimming blanks.
func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(tok); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// envWeightMap parses "name:weight,name:weight" pairs.
func envWeightMap(key string) map[string]int {
	out := make(map[string]int)
	for _, tok := range envList(key) {
		parts := strings.SplitN(tok, ":", 2)
		if len(parts) != 2 {
			logger.LogWarn("Ignoring malformed %s entry: %q", key, tok)
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			logger.LogWarn("Ignoring non-numeric weight in %s: %q", key, tok)
			continue
		}
		out[strings.ToLower(strings.TrimSpace(parts[0]))] = n
	}
	return out
}

//
// --- Loaders ---
//

// LoadEnv reads .env file
func LoadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("Could not determine working directory: %v", err)
	} else {
		log.Printf("Current working directory: %s", wd)
	}

	err = godotenv.Load(".env")
	if err != nil {
		log.Printf("No .env file found in %s. Using system environment variables.", wd)
	} else {
		log.Printf("Loaded environment variables from .env file in %s", wd)
	}
}

// LoggerConfig returns a logger.Config struct populated from environment
func LoggerConfig() logger.Config {
	logDir := GetEnvBasedSetting("LOGS_DIRECTORY")
	if logDir == "" {
		logDir = "./logs"
	}

	logFormat := GetEnvBasedSetting("LOG_FILE_FORMAT")
	if logFormat == "" {
		logFormat = "kits_%s.log"
	}

	timezone := os.Getenv("TIME_ZONE")
	if timezone == "" {
		timezone = "UTC"
	}

	return logger.Config{
		LogsDirectory: logDir,
		LogFileFormat: logFormat,
		TimeZone:      timezone,
	}
}

// ConfigurePaths sets up folders and file paths used by persistence.
func ConfigurePaths() {
	wd, err := os.Getwd()
	if err != nil {
		logger.LogFatal("Could not determine working directory: %v", err)
	}
	baseDir = wd

	dataDirectory = envOr("DATA_DIRECTORY", filepath.Join(baseDir, "data"))
	logsDirectory = envOr("LOGS_DIRECTORY", filepath.Join(baseDir, "logs"))

	for _, dir := range []string{dataDirectory, logsDirectory} {
		if err := os.MkdirAll(dir, 0775); err != nil {
			logger.LogFatal("Failed to create directory %s: %v", dir, err)
		}
	}

	DatabasePath = envOr("DATABASE_PATH", filepath.Join(dataDirectory, "kits.db"))
	KitSeedFile = envOr("KIT_SEED_FILE", filepath.Join(dataDirectory, "kits.yaml"))
}

// LoadEngineSettings reads the claim-engine toggles, applying the same
// defaults the engine shipped with.
func LoadEngineSettings() EngineSettings {
	s := EngineSettings{
		UseEconomics:        envBool("USE_ECONOMICS", true),
		UseServerRewards:    envBool("USE_SERVER_REWARDS", false),
		CurrencyFormat:      envOr("CURRENCY_FORMAT", "%.0f"),
		AllowAuthLevelAdmin: envBool("ALLOW_AUTHLEVEL_ADMIN", true),
		Streaks: StreakRules{
			Enable:       envBool("STREAKS_ENABLE", true),
			DailyKitName: strings.ToLower(envOr("STREAK_DAILY_KIT", "daily")),
			Rewards:      envWeightMap("STREAK_REWARDS"),
		},
		TeamUnlock: TeamUnlockRules{
			Enable:      envBool("TEAM_UNLOCK_ENABLE", true),
			KitAt3:      strings.ToLower(envOr("TEAM_KIT_AT_3", "team3")),
			KitAt4:      strings.ToLower(envOr("TEAM_KIT_AT_4", "team4")),
			RemoveAbove: envInt("TEAM_REMOVE_ABOVE", 5),
			Notify:      envBool("TEAM_NOTIFY", true),
		},
		AutoKits: AutoKitRules{
			OnFirstConnect: envList("AUTOKITS_FIRST_CONNECT"),
			OnRespawn:      envList("AUTOKITS_RESPAWN"),
			OnConnect:      envList("AUTOKITS_CONNECT"),
			Priority:       envWeightMap("AUTOKIT_PRIORITY"),
		},
	}

	if len(s.Streaks.Rewards) == 0 {
		s.Streaks.Rewards = map[string]int{"streak-3": 3, "streak-7": 7}
	}
	if len(s.AutoKits.OnFirstConnect) == 0 {
		s.AutoKits.OnFirstConnect = []string{"starter"}
	}
	if len(s.AutoKits.OnRespawn) == 0 {
		s.AutoKits.OnRespawn = []string{"starter"}
	}
	if len(s.AutoKits.Priority) == 0 {
		s.AutoKits.Priority = map[string]int{"pvp": 10, "starter": 5}
	}
	return s
}

// LogCurrentEnvironment logs which environment is running.
func LogCurrentEnvironment() {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	if env == "dev" {
		logger.LogInfo("Running in development environment")
	} else {
		logger.LogInfo("Running in production environment")
	}
}
