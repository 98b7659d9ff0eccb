package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Spotify SpotifyConfig
	LLM     LLMConfig
	Session SessionConfig
	Resolve ResolveConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	RootURL        string
	Production     bool
	RequestTimeout time.Duration
}

// SpotifyConfig holds the music service credentials. Empty values are legal
// here; each endpoint reports its own configuration error when it needs one.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	APIURL       string
	SearchRPS    float64
}

type LLMConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

type SessionConfig struct {
	Store    string // "cookie" or "sqlite"
	DBPath   string
	HashKey  string
	BlockKey string
	TTL      time.Duration
}

type ResolveConfig struct {
	Concurrency int
	CacheTTL    time.Duration
	CleanTitles bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Load initializes the configuration with viper
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it. Using default values and environment variables.")
	}

	SetDefaults()

	viper.AutomaticEnv()

	viper.SetEnvKeyReplacer(envReplacer())

	// the hosted provider's conventional variable names
	_ = viper.BindEnv("llm.api_key", "LLM_API_KEY", "GROQ_API_KEY", "API_KEY_GROQ_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Error reading config file: %v", err)
		}
		log.Println("Config file not found, using default values and environment variables")
	} else {
		log.Println("Using config file:", viper.ConfigFileUsed())
	}

	cfg := FromViper()

	missing := cfg.Missing()
	if len(missing) > 0 {
		log.Printf("Configuration variables not set, dependent endpoints will report errors: %s", strings.Join(missing, ", "))
	}

	return cfg
}

func SetDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.root_url", "/")
	viper.SetDefault("server.production", false)
	viper.SetDefault("server.request_timeout", "30s")

	viper.SetDefault("spotify.auth_url", "https://accounts.spotify.com/authorize")
	viper.SetDefault("spotify.token_url", "https://accounts.spotify.com/api/token")
	viper.SetDefault("spotify.api_url", "https://api.spotify.com/v1/")
	viper.SetDefault("spotify.search_rps", 10)

	viper.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("llm.model", "openai/gpt-oss-120b")
	viper.SetDefault("llm.max_tokens", 2000)

	viper.SetDefault("session.store", "cookie")
	viper.SetDefault("session.db_path", "./data/moodmix.db")
	viper.SetDefault("session.ttl", "720h")

	viper.SetDefault("resolve.concurrency", 4)
	viper.SetDefault("resolve.cache_ttl", "1h")
	viper.SetDefault("resolve.clean_titles", false)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// FromViper snapshots the current viper state. The result is treated as
// read-only for the life of the process.
func FromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           viper.GetString("server.host"),
			Port:           viper.GetString("server.port"),
			RootURL:        viper.GetString("server.root_url"),
			Production:     viper.GetBool("server.production"),
			RequestTimeout: viper.GetDuration("server.request_timeout"),
		},
		Spotify: SpotifyConfig{
			ClientID:     viper.GetString("spotify.client_id"),
			ClientSecret: viper.GetString("spotify.client_secret"),
			RedirectURI:  viper.GetString("spotify.redirect_uri"),
			AuthURL:      viper.GetString("spotify.auth_url"),
			TokenURL:     viper.GetString("spotify.token_url"),
			APIURL:       viper.GetString("spotify.api_url"),
			SearchRPS:    viper.GetFloat64("spotify.search_rps"),
		},
		LLM: LLMConfig{
			APIKey:    viper.GetString("llm.api_key"),
			BaseURL:   viper.GetString("llm.base_url"),
			Model:     viper.GetString("llm.model"),
			MaxTokens: viper.GetInt("llm.max_tokens"),
		},
		Session: SessionConfig{
			Store:    viper.GetString("session.store"),
			DBPath:   viper.GetString("session.db_path"),
			HashKey:  viper.GetString("session.hash_key"),
			BlockKey: viper.GetString("session.block_key"),
			TTL:      viper.GetDuration("session.ttl"),
		},
		Resolve: ResolveConfig{
			Concurrency: viper.GetInt("resolve.concurrency"),
			CacheTTL:    viper.GetDuration("resolve.cache_ttl"),
			CleanTitles: viper.GetBool("resolve.clean_titles"),
		},
		Log: LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
	}
}

// Missing lists the credential keys that are unset.
func (c *Config) Missing() []string {
	var missing []string
	check := func(key, val string) {
		if val == "" {
			missing = append(missing, key)
		}
	}
	check("spotify.client_id", c.Spotify.ClientID)
	check("spotify.client_secret", c.Spotify.ClientSecret)
	check("spotify.redirect_uri", c.Spotify.RedirectURI)
	check("llm.api_key", c.LLM.APIKey)
	return missing
}

func envReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
