// Package config defines the process configuration for the PulseEcho
// backend and loads it from defaults, an optional YAML file, and
// environment variables. The resulting Config is passed explicitly into
// each component at construction; nothing reads the environment after
// startup.
package config

import "fmt"

// Config contains all recognized options.
type Config struct {
	Server ServerConfig `koanf:"server"`
	DB     DBConfig     `koanf:"db"`
	Minio  MinioConfig  `koanf:"minio"`
	Model  ModelConfig  `koanf:"model"`
	Upload UploadConfig `koanf:"upload"`
	Alert  AlertConfig  `koanf:"alert"`
	Twilio TwilioConfig `koanf:"twilio"`
	Admin  AdminConfig  `koanf:"admin"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port string `koanf:"port"`
}

// DBConfig configures the Postgres connection.
type DBConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"sslmode"`
}

// DSN renders the lib/pq data source name.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// MinioConfig configures the recordings object store.
type MinioConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// Classifier modes.
const (
	ModelModeMock   = "mock"
	ModelModeLocal  = "local"
	ModelModeRemote = "remote"
)

// ModelConfig selects and configures the classifier variant.
type ModelConfig struct {
	// Mode is one of mock, local, remote.
	Mode   string `koanf:"mode"`
	APIURL string `koanf:"api_url"`
	APIKey string `koanf:"api_key"`
}

// UploadConfig bounds accepted recordings.
type UploadConfig struct {
	// MaxBytes is the inclusive upper bound on recording size.
	MaxBytes int64 `koanf:"max_bytes"`
	// AllowedFormats lists accepted file extensions without the dot.
	AllowedFormats []string `koanf:"allowed_formats"`
}

// AlertConfig controls risk tiering and SMS alerting.
type AlertConfig struct {
	// Threshold is the minimum confidence at which a non-normal
	// classification is tiered high.
	Threshold float64 `koanf:"threshold"`
	// ClinicPhone receives high-risk alerts when the patient record has
	// no phone number.
	ClinicPhone string `koanf:"clinic_phone"`
}

// TwilioConfig holds SMS provider credentials. When AccountSID or
// AuthToken is empty the service falls back to the mock sender.
type TwilioConfig struct {
	AccountSID string `koanf:"account_sid"`
	AuthToken  string `koanf:"auth_token"`
	FromNumber string `koanf:"from_number"`
}

// AdminConfig holds credentials for the /admin maintenance API.
type AdminConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// New returns a Config populated with defaults. Load layers file and
// environment values on top of these.
func New() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		DB: DBConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "pulseecho",
			SSLMode: "disable",
		},
		Minio: MinioConfig{
			Bucket: "heart-recordings",
		},
		Model: ModelConfig{Mode: ModelModeMock},
		Upload: UploadConfig{
			MaxBytes:       10 << 20,
			AllowedFormats: []string{"wav", "mp3", "m4a"},
		},
		Alert: AlertConfig{Threshold: 0.85},
	}
}
