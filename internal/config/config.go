package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	MySQLDSN              string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	RedisTTLHours         int
	LocalStoreDir         string
	DefaultAccountID      string
	AuthSecret            string
	AccessTokenTTLMinutes int
	Accounts              map[string]string
	UndoCapacity          int
	DefaultMixWeight      int
}

// Load reads the process environment, after merging any .env file in the
// working directory. Variables already set win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] WARN: failed to read .env: %v", err)
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisTTL, err := strconv.Atoi(getEnv("REDIS_TTL_HOURS", "0"))
	if err != nil || redisTTL < 0 {
		redisTTL = 0
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	undoCapacity, err := strconv.Atoi(getEnv("UNDO_CAPACITY", "10"))
	if err != nil || undoCapacity < 1 {
		undoCapacity = 10
	}
	mixWeight, err := strconv.Atoi(getEnv("DEFAULT_MIX_WEIGHT", "50"))
	if err != nil || mixWeight < 0 || mixWeight > 100 {
		mixWeight = 50
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		MySQLDSN:              os.Getenv("MYSQL_DSN"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		RedisTTLHours:         redisTTL,
		LocalStoreDir:         getEnv("LOCAL_STORE_DIR", "./data"),
		DefaultAccountID:      getEnv("DEFAULT_ACCOUNT_ID", "local"),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		Accounts:              ParseAccounts(os.Getenv("ACCOUNTS")),
		UndoCapacity:          undoCapacity,
		DefaultMixWeight:      mixWeight,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// ParseAccounts reads a comma separated list of user:password pairs. Entries
// without a colon or with an empty side are skipped.
func ParseAccounts(raw string) map[string]string {
	accounts := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		username, password, ok := strings.Cut(strings.TrimSpace(entry), ":")
		username = strings.ToLower(strings.TrimSpace(username))
		if !ok || username == "" || password == "" {
			continue
		}
		accounts[username] = password
	}
	return accounts
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
