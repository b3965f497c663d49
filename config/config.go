package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	CORS      CORSConfig      `yaml:"cors"`
	Generator GeneratorConfig `yaml:"generator"`
	Git       GitConfig       `yaml:"git"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	App       AppConfig       `yaml:"app"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// Addr is the listen address, e.g. 0.0.0.0:5008.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

type GeneratorConfig struct {
	URL       string        `yaml:"url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 disables
	Burst     int           `yaml:"burst"`
}

type GitConfig struct {
	RepoPath     string `yaml:"repo_path"`
	Remote       string `yaml:"remote"`
	Branch       string `yaml:"branch"`
	ArtifactDir  string `yaml:"artifact_dir"`
	ArtifactName string `yaml:"artifact_name"`
	AuthorName   string `yaml:"author_name"`
	AuthorEmail  string `yaml:"author_email"`
	SyncSchedule string `yaml:"sync_schedule"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether a postgres host was configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	Version     string `yaml:"version"`
}

var defaultOrigins = []string{
	"http://localhost",
	"http://localhost:8000",
	"http://localhost:4200",
}

// Defaults returns the configuration used when neither the YAML file nor the
// environment set a value.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "5008",
		},
		CORS: CORSConfig{
			Origins: append([]string(nil), defaultOrigins...),
		},
		Generator: GeneratorConfig{
			URL:     "http://localhost:8088",
			Timeout: 90 * time.Second,
			Burst:   1,
		},
		Git: GitConfig{
			RepoPath:     ".",
			Remote:       "origin",
			Branch:       "main",
			ArtifactDir:  "generated",
			ArtifactName: "main.tf",
			AuthorName:   "mediguru-bot",
			AuthorEmail:  "bot@mediguru.local",
			SyncSchedule: "0 */15 * * * *",
		},
		Database: DatabaseConfig{
			Port: 5432,
			User: "postgres",
			Name: "mediguru",
		},
		App: AppConfig{
			Name:        "mediguru-gateway",
			Environment: "development",
			LogLevel:    "info",
			Version:     "1.0.0",
		},
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.Port = getEnv("PORT", c.Server.Port)

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORS.Origins = splitList(v)
	}

	c.Generator.URL = getEnv("GENERATOR_URL", c.Generator.URL)
	c.Generator.Timeout = getEnvAsDuration("GENERATOR_TIMEOUT", c.Generator.Timeout)
	c.Generator.RateLimit = getEnvAsFloat("GENERATOR_RATE_LIMIT", c.Generator.RateLimit)
	c.Generator.Burst = getEnvAsInt("GENERATOR_BURST", c.Generator.Burst)

	c.Git.RepoPath = getEnv("GIT_REPO_PATH", c.Git.RepoPath)
	c.Git.Remote = getEnv("GIT_REMOTE", c.Git.Remote)
	c.Git.Branch = getEnv("GIT_BRANCH", c.Git.Branch)
	c.Git.ArtifactDir = getEnv("ARTIFACT_DIR", c.Git.ArtifactDir)
	c.Git.ArtifactName = getEnv("ARTIFACT_NAME", c.Git.ArtifactName)
	c.Git.AuthorName = getEnv("GIT_AUTHOR_NAME", c.Git.AuthorName)
	c.Git.AuthorEmail = getEnv("GIT_AUTHOR_EMAIL", c.Git.AuthorEmail)
	if v, ok := os.LookupEnv("GIT_SYNC_SCHEDULE"); ok {
		// empty value disables the sync job
		c.Git.SyncSchedule = v
	}

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.App.Name = getEnv("SERVICE_NAME", c.App.Name)
	c.App.Environment = getEnv("APP_ENV", c.App.Environment)
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)
	c.App.Version = getEnv("APP_VERSION", c.App.Version)
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("PORT is required")
	}

	if c.Generator.URL == "" {
		return errors.New("GENERATOR_URL is required")
	}

	if c.Git.RepoPath == "" {
		return errors.New("GIT_REPO_PATH is required")
	}

	if c.Git.Branch == "" {
		return errors.New("GIT_BRANCH is required")
	}

	if c.Git.ArtifactName == "" || strings.ContainsAny(c.Git.ArtifactName, `/\`) {
		return fmt.Errorf("ARTIFACT_NAME must be a plain file name, got %q", c.Git.ArtifactName)
	}

	if len(c.CORS.Origins) == 0 {
		return errors.New("at least one CORS origin is required")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
