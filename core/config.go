package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage engines
const (
	EnginePostgres = "postgres"
	EngineBadger   = "badger"
	EngineMemory   = "memory"
)

type (
	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		BadgerPath    string
	}

	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		AdminEmail       string
		RollbarToken     string
		FallbackDataPath string
		StorageEngine    string
		CacheSize        int
		Server           ServerConfig
		Database         DatabaseConfig
	}
)

// Address returns the "host:port" of the database server.
func (db DatabaseConfig) Address() string {
	return db.Host + ":" + db.Port
}

// NewConfig reads the configuration from the environment.
// ENV selects the environment (DEV by default, TEST, QA or PROD); every key may be overridden by
// an env var prefixed with it (ex: DEV_SECRETKEY), or by config/.env.<env>.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("build", "develop")
	conf.SetDefault("appName", "Student Directory")
	conf.SetDefault("secretKey", "x8!k2m$f@9qz^tn4#jv0w(e3)lr6+hy7_sd5=cp1*ob")
	conf.SetDefault("adminEmail", "admin@panpacificu.edu.ph")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("fallbackDataPath", "")
	conf.SetDefault("storageEngine", EnginePostgres)
	conf.SetDefault("cacheSize", 256)

	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddress", ":8000")
	conf.SetDefault("serverDebugHost", ":4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbName", "studentdir")
	conf.SetDefault("dbUser", "studentdir")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbAdminUser", "postgres")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbDisableTLS", true)
	conf.SetDefault("dbBadgerPath", "data/badger")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
		conf.SetDefault("storageEngine", EngineMemory)
	case "QA", "PROD":
		conf.SetDefault("debug", false)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(configDir(), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		Env:              env,
		Build:            conf.GetString("build"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		AdminEmail:       CleanString(conf.GetString("adminEmail"), true /* lower */),
		RollbarToken:     conf.GetString("rollbarToken"),
		FallbackDataPath: conf.GetString("fallbackDataPath"),
		StorageEngine:    conf.GetString("storageEngine"),
		CacheSize:        conf.GetInt("cacheSize"),
		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			Address:                   conf.GetString("serverAddress"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
			BadgerPath:    conf.GetString("dbBadgerPath"),
		},
	}
}

// Validate checks the settings the app cannot start without.
func (c *Config) Validate() error {
	switch c.StorageEngine {
	case EnginePostgres, EngineBadger, EngineMemory:
	default:
		return fmt.Errorf("unknown storage engine %q", c.StorageEngine)
	}
	if c.AdminEmail == "" {
		return fmt.Errorf("adminEmail is required")
	}
	if !c.Debug && c.SecretKey == "" {
		return fmt.Errorf("secretKey is required")
	}
	return nil
}

// configDir finds the directory holding the .env files.
// go-test changes the working directory to the package being tested, so we walk up until we find it.
func configDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		candidate := filepath.Join(currDir, "config")
		if fi, err := os.Stat(candidate); err == nil && fi.IsDir() {
			return candidate
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return filepath.Join(wd, "config")
		}
		currDir = newDir
	}
}
