package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/linguaops/payrecon/internal/ai"
	"github.com/linguaops/payrecon/internal/ai/gemini"
	"github.com/linguaops/payrecon/internal/ingest"
	"github.com/linguaops/payrecon/internal/logger"
	"github.com/linguaops/payrecon/internal/mapping"
	"github.com/linguaops/payrecon/internal/pipeline"
	"github.com/linguaops/payrecon/internal/platform"
	"github.com/linguaops/payrecon/internal/secrets"
	"github.com/linguaops/payrecon/internal/store"
)

const uploadPrefix = "upload:"

// env is what every command needs: the config, a logger and the store.
type env struct {
	config *Config
	logger *zap.Logger
	db     *gorm.DB

	templates *store.TemplateStore
	vendors   *store.VendorStore
}

// setup fails the process on configuration problems the operator must fix.
func setup(command string) *env {
	lg, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		lg.Fatal("getting a config", zap.Error(err))
	}

	lg.Info("starting the payrecon", zap.String("command", command), zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	lg.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	db, err := store.Open(config.Store, lg)
	if err != nil {
		lg.Fatal("opening the store", zap.Error(err), zap.String("driver", config.Store.Driver))
	}

	return &env{
		config:    config,
		logger:    lg,
		db:        db,
		templates: store.NewTemplateStore(db),
		vendors:   store.NewVendorStore(db),
	}
}

func (e *env) close() {
	if err := store.Close(e.db); err != nil {
		e.logger.Warn("closing the store", zap.Error(err))
	}
	_ = e.logger.Sync()
}

func (e *env) templateService() *mapping.TemplateService {
	return mapping.NewTemplateService(e.templates, e.logger)
}

// pipeline builds the shared import pipeline. templateOverride wins over the
// configured template name.
func (e *env) pipeline(ctx context.Context, templateOverride string) (*pipeline.Pipeline, error) {
	manual, unknown := e.config.manualMapping()
	if len(unknown) > 0 {
		sort.Strings(unknown)
		e.logger.Warn("ignoring unknown fields in mapping.columns", zap.Strings("fields", unknown))
	}

	name := e.config.templateName()
	if strings.TrimSpace(templateOverride) != "" {
		name = templateOverride
	}

	deps := pipeline.Deps{
		Templates: e.templateService(),
		Vendors:   e.vendors,
		Logger:    e.logger,
	}

	suggester, err := newSuggester(ctx, e.config.AI, e.logger)
	if err != nil {
		e.logger.Warn("skipping AI mapping suggestion", zap.Error(err))
	}
	if suggester != nil {
		deps.Suggester = suggester
	}

	return pipeline.New(ctx, deps, pipeline.Config{
		TemplateName: name,
		Manual:       manual,
		Defaults:     e.config.Defaults,
		AutoDetect:   e.config.autoDetect(),
	})
}

// readInput resolves an input reference to text. "upload:<key>" is a shortcut
// for an object in the configured upload bucket.
func (e *env) readInput(ctx context.Context, ref string) (string, error) {
	if key, ok := strings.CutPrefix(ref, uploadPrefix); ok {
		if e.config.Upload == nil || e.config.Upload.S3 == nil || e.config.Upload.S3.Bucket == "" {
			return "", errors.New("upload.s3.bucket is not configured")
		}
		ref = fmt.Sprintf("s3://%s/%s", e.config.Upload.S3.Bucket, strings.TrimPrefix(key, "/"))
	}

	var objects ingest.ObjectFetcher
	if strings.HasPrefix(ref, "s3://") {
		fetcher, err := newObjectFetcher(ctx, e.config.Upload, e.logger)
		if err != nil {
			return "", err
		}
		objects = fetcher
	}
	return ingest.NewReader(e.logger, objects).ReadText(ctx, ref)
}

func (e *env) platformClient() (*platform.Client, error) {
	cfg := e.config.Platform
	if cfg == nil {
		cfg = &PlatformConfig{}
	}

	tokenFile := strings.TrimSpace(cfg.TokenFile)
	if tokenFile == "" {
		tokenFile = strings.TrimSpace(viper.GetString("platform.token-file"))
	}

	token, err := secrets.Load(secrets.Source{
		Name: "platform token",
		File: tokenFile,
		Env:  "PAYRECON_TOKEN",
	})
	if err != nil {
		return nil, err
	}

	client := platform.New(e.logger, token)
	if cfg.APIURL != "" {
		client.APIURL = strings.TrimRight(cfg.APIURL, "/")
	}
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}
	return client, nil
}

func newObjectFetcher(ctx context.Context, cfg *UploadConfig, lg *zap.Logger) (*ingest.S3Fetcher, error) {
	if cfg == nil || cfg.S3 == nil {
		return nil, errors.New("upload.s3 is not configured")
	}

	s3cfg := ingest.S3Config{
		Endpoint:     cfg.S3.Endpoint,
		Region:       cfg.S3.Region,
		UsePathStyle: cfg.S3.UsePathStyle,
	}

	if cfg.S3.AccessKeyFile != "" || cfg.S3.SecretKeyFile != "" {
		var err error
		s3cfg.AccessKey, err = secrets.Load(secrets.Source{Name: "upload access key", File: cfg.S3.AccessKeyFile})
		if err != nil {
			return nil, err
		}
		s3cfg.SecretKey, err = secrets.Load(secrets.Source{Name: "upload secret key", File: cfg.S3.SecretKeyFile})
		if err != nil {
			return nil, err
		}
	}

	return ingest.NewS3Fetcher(ctx, s3cfg, lg)
}

// newSuggester returns nil without error when AI is disabled.
func newSuggester(ctx context.Context, cfg *AIConfig, lg *zap.Logger) (ai.MappingSuggester, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	aiLogger := logger.WithFields(lg, logger.AIFields("gemini", cfg.Gemini.Model)...)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries,
		aiLogger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries)))
	if err != nil {
		return nil, err
	}

	return gemini.NewSuggester(generator, cfg.Gemini.MaxLogLength, aiLogger), nil
}
