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

	"salesroute/internal/model"
)

// DefaultOSRMServer is the public OSRM demo server.
const DefaultOSRMServer = "http://router.project-osrm.org"

// LoadDotEnv loads .env (or the given files) into the process environment.
// A missing file is not an error.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("No .env file found (using environment variables)")
	}
}

// Env returns the value of key, or fallback when unset or blank.
func Env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func EnvInt(key string, fallback int) int {
	v := Env(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config key=%s value=%q err=%v using=%d", key, v, err, fallback)
		return fallback
	}
	return n
}

func EnvFloat(key string, fallback float64) float64 {
	v := Env(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("config key=%s value=%q err=%v using=%g", key, v, err, fallback)
		return fallback
	}
	return f
}

// EnvDuration accepts Go durations ("45s") or a bare number of seconds.
func EnvDuration(key string, fallback time.Duration) time.Duration {
	v := Env(key, "")
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	log.Printf("config key=%s value=%q invalid duration using=%s", key, v, fallback)
	return fallback
}

// File is the rep configuration file. JSON files are accepted as well since
// YAML is a superset of JSON.
type File struct {
	SalesRep     model.Rep    `yaml:"sales_rep"`
	OSRMServer   string       `yaml:"osrm_server"`
	Optimization Optimization `yaml:"optimization_settings"`
}

type Optimization struct {
	TimeLimitSeconds float64 `yaml:"time_limit_seconds"`
	Workers          int     `yaml:"workers"`
	Seed             int64   `yaml:"seed"`
	MaxWaitMinutes   float64 `yaml:"max_wait_minutes"`
}

// TimeLimit is the search budget; 30s when unset.
func (o Optimization) TimeLimit() time.Duration {
	if o.TimeLimitSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(o.TimeLimitSeconds * float64(time.Second))
}

// Load reads and validates a config file.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if f.OSRMServer == "" {
		f.OSRMServer = DefaultOSRMServer
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) Validate() error {
	r := f.SalesRep
	var errs []error
	if strings.TrimSpace(r.WorkingHours.Start) == "" || strings.TrimSpace(r.WorkingHours.End) == "" {
		errs = append(errs, errors.New("sales_rep.working_hours start and end are required"))
	}
	if r.MaxDistanceKm <= 0 {
		errs = append(errs, errors.New("sales_rep.max_distance_km must be positive"))
	}
	if r.MaxTravelHours < 0 {
		errs = append(errs, errors.New("sales_rep.max_travel_hours must not be negative"))
	}
	if f.Optimization.Workers < 0 {
		errs = append(errs, errors.New("optimization_settings.workers must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
