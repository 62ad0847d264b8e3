package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/linguaops/payrecon/internal/invoice"
	"github.com/linguaops/payrecon/internal/mapping"
	"github.com/linguaops/payrecon/internal/store"
)

const (
	app = "payrecon"
)

type Config struct {
	Platform    *PlatformConfig  `mapstructure:"platform"`
	Store       store.Config     `mapstructure:"store"`
	Defaults    mapping.Defaults `mapstructure:"defaults"`
	Mapping     *MappingConfig   `mapstructure:"mapping"`
	Upload      *UploadConfig    `mapstructure:"upload"`
	ExcludeFile string           `mapstructure:"exclude-file"`
	AI          *AIConfig        `mapstructure:"ai"`
}

type PlatformConfig struct {
	APIURL    string        `mapstructure:"api-url"`
	TokenFile string        `mapstructure:"token-file"`
	UserAgent string        `mapstructure:"user-agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// MappingConfig selects a saved template and pins columns by hand.
// Columns maps a field key (invoiceCode, totalCost, ...) to a header.
type MappingConfig struct {
	Template   string            `mapstructure:"template"`
	Columns    map[string]string `mapstructure:"columns"`
	AutoDetect *bool             `mapstructure:"auto-detect"`
}

type UploadConfig struct {
	S3 *S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint      string `mapstructure:"endpoint"`
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	AccessKeyFile string `mapstructure:"access-key-file"`
	SecretKeyFile string `mapstructure:"secret-key-file"`
	UsePathStyle  bool   `mapstructure:"use-path-style"`
}

type AIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Gemini  *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "payrecon reconciles billing exports against the vendor registry and the payment platform",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("platform.token-file", "PAYRECON_TOKEN_FILE"); err != nil {
		log.Fatalf("binding PAYRECON_TOKEN_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	viper.SetDefault("store.driver", store.DriverSQLite)
	viper.SetDefault("platform.timeout", 30*time.Second)
	viper.SetDefault("defaults.service-type", invoice.ServiceTypes[0])
	viper.SetDefault("defaults.units-type", invoice.UnitsWords)
	viper.SetDefault("defaults.currency", invoice.Currencies[0])

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is payrecon.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Without an explicit --config the file is optional and defaults apply.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	return config, nil
}

// manualMapping converts configured columns, dropping unknown field keys.
func (c *Config) manualMapping() (mapping.FieldMapping, []string) {
	if c.Mapping == nil {
		return nil, nil
	}
	return parseColumns(c.Mapping.Columns)
}

func (c *Config) autoDetect() bool {
	if c.Mapping == nil || c.Mapping.AutoDetect == nil {
		return true
	}
	return *c.Mapping.AutoDetect
}

func (c *Config) templateName() string {
	if c.Mapping == nil {
		return ""
	}
	return c.Mapping.Template
}

func parseColumns(columns map[string]string) (mapping.FieldMapping, []string) {
	m := mapping.FieldMapping{}
	var unknown []string
	for key, header := range columns {
		f, ok := mapping.ParseField(key)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		m[f] = header
	}
	return m, unknown
}
