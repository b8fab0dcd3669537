// backend/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Moscow must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gewnthar/lottometeo/backend/utils"
)

type ServerConfig struct {
	Port               string        `yaml:"port"`
	ShutdownTimeoutStr string        `yaml:"shutdown_timeout"`
	ShutdownTimeout    time.Duration `yaml:"-"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type LotteryConfig struct {
	URL            string        `yaml:"url"`
	ArchiveCSVURL  string        `yaml:"archive_csv_url"`
	RowSelector    string        `yaml:"row_selector"`
	HTTPTimeoutStr string        `yaml:"http_timeout"`
	HTTPTimeout    time.Duration `yaml:"-"`
}

type WeatherConfig struct {
	APIKey          string        `yaml:"api_key"`
	APIURL          string        `yaml:"api_url"`
	City            string        `yaml:"city"`
	CountryCode     string        `yaml:"country_code"`
	Units           string        `yaml:"units"`
	Lang            string        `yaml:"lang"`
	LinkRecentDraws int           `yaml:"link_recent_draws"`
	HTTPTimeoutStr  string        `yaml:"http_timeout"`
	HTTPTimeout     time.Duration `yaml:"-"`
}

type ScheduleConfig struct {
	Enabled           bool          `yaml:"enabled"`
	CombinedTimes     []string      `yaml:"combined_times"`
	WeatherStart      string        `yaml:"weather_start"`
	WeatherEnd        string        `yaml:"weather_end"`
	WeatherStepStr    string        `yaml:"weather_step"`
	TickStr           string        `yaml:"tick"`
	Timezone          string        `yaml:"timezone"`
	RunWeatherOnStart bool          `yaml:"run_weather_on_start"`
	WeatherStep       time.Duration `yaml:"-"`
	Tick              time.Duration `yaml:"-"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Lottery  LotteryConfig  `yaml:"lottery"`
	Weather  WeatherConfig  `yaml:"weather"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Admin    AdminConfig    `yaml:"admin"`
	Debug    bool           `yaml:"debug"`
}

// Defaults returns the configuration used when no file or environment overrides it.
func Defaults() Config {
	return Config{
		Server: ServerConfig{Port: "8080", ShutdownTimeoutStr: "10s"},
		Database: DatabaseConfig{
			Host:   "127.0.0.1",
			Port:   "3306",
			User:   "lottometeo",
			DBName: "lottometeo",
		},
		Lottery: LotteryConfig{
			URL:            "https://www.lotonews.ru/draws/archive/4x20",
			RowSelector:    ".content-main__circ-render-table-row",
			HTTPTimeoutStr: "60s",
		},
		Weather: WeatherConfig{
			APIURL:          "https://api.openweathermap.org/data/2.5/weather",
			City:            "Moscow",
			CountryCode:     "RU",
			Units:           "metric",
			Lang:            "ru",
			LinkRecentDraws: 2,
			HTTPTimeoutStr:  "10s",
		},
		Schedule: ScheduleConfig{
			Enabled:           true,
			CombinedTimes:     []string{"10:00", "12:00", "13:00", "16:00", "16:22", "18:00", "20:00", "22:00"},
			WeatherStart:      "08:00",
			WeatherEnd:        "23:30",
			WeatherStepStr:    "30m",
			TickStr:           "60s",
			Timezone:          "Europe/Moscow",
			RunWeatherOnStart: true,
		},
		Kafka: KafkaConfig{Topic: "lottometeo.events"},
	}
}

// Load reads configuration from a YAML file (optional), a .env file (optional)
// and the process environment, in that order of increasing precedence.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath == "" {
		potentialPaths := []string{
			"config.yaml",
			"config/config.yaml",
			"./backend/config/config.yaml",
		}
		for _, p := range potentialPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnv(&cfg)

	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.DBName, "DB_NAME")
	setString(&cfg.Lottery.URL, "LOTTERY_URL")
	setString(&cfg.Lottery.ArchiveCSVURL, "LOTTERY_ARCHIVE_CSV_URL")
	setString(&cfg.Weather.APIKey, "WEATHER_API_KEY")
	setString(&cfg.Weather.APIURL, "WEATHER_API_URL")
	setString(&cfg.Weather.City, "CITY_NAME")
	setString(&cfg.Weather.CountryCode, "COUNTRY_CODE")
	setString(&cfg.Schedule.Timezone, "TIMEZONE")
	setString(&cfg.Kafka.Topic, "KAFKA_TOPIC")
	setString(&cfg.Admin.JWTSecret, "ADMIN_JWT_SECRET")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Schedule.Enabled = b
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) parseDurations() error {
	var err error
	if c.Server.ShutdownTimeout, err = parseDuration(c.Server.ShutdownTimeoutStr, 10*time.Second); err != nil {
		return fmt.Errorf("failed to parse server.shutdown_timeout: %w", err)
	}
	if c.Lottery.HTTPTimeout, err = parseDuration(c.Lottery.HTTPTimeoutStr, 60*time.Second); err != nil {
		return fmt.Errorf("failed to parse lottery.http_timeout: %w", err)
	}
	if c.Weather.HTTPTimeout, err = parseDuration(c.Weather.HTTPTimeoutStr, 10*time.Second); err != nil {
		return fmt.Errorf("failed to parse weather.http_timeout: %w", err)
	}
	if c.Schedule.WeatherStep, err = parseDuration(c.Schedule.WeatherStepStr, 30*time.Minute); err != nil {
		return fmt.Errorf("failed to parse schedule.weather_step: %w", err)
	}
	if c.Schedule.Tick, err = parseDuration(c.Schedule.TickStr, time.Minute); err != nil {
		return fmt.Errorf("failed to parse schedule.tick: %w", err)
	}
	return nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

// Validate checks the fields the service cannot run without.
func (c *Config) Validate() error {
	if c.Lottery.URL == "" {
		return errors.New("lottery.url is required")
	}
	if c.Weather.City == "" {
		return errors.New("weather.city is required")
	}
	if c.Weather.LinkRecentDraws <= 0 {
		return fmt.Errorf("weather.link_recent_draws must be positive, got %d", c.Weather.LinkRecentDraws)
	}
	for _, t := range c.Schedule.CombinedTimes {
		if _, err := utils.ParseClock(t); err != nil {
			return fmt.Errorf("schedule.combined_times: %w", err)
		}
	}
	start, err := utils.ParseClock(c.Schedule.WeatherStart)
	if err != nil {
		return fmt.Errorf("schedule.weather_start: %w", err)
	}
	end, err := utils.ParseClock(c.Schedule.WeatherEnd)
	if err != nil {
		return fmt.Errorf("schedule.weather_end: %w", err)
	}
	if end < start {
		return fmt.Errorf("schedule.weather_end %s is before weather_start %s", c.Schedule.WeatherEnd, c.Schedule.WeatherStart)
	}
	if c.Schedule.WeatherStep < time.Minute {
		return fmt.Errorf("schedule.weather_step must be at least 1m, got %s", c.Schedule.WeatherStep)
	}
	if c.Schedule.Tick <= 0 {
		return errors.New("schedule.tick must be positive")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}

// Location returns the schedule time zone. Validate has already checked it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN builds the MySQL data source name.
func (d DatabaseConfig) DSN() string {
	// username:password@protocol(address)/dbname?param=value
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}
