package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/logo-objects/internal/auth"
	"github.com/fivetwenty-io/logo-objects/internal/client"
	"github.com/fivetwenty-io/logo-objects/internal/constants"
	internalhttp "github.com/fivetwenty-io/logo-objects/internal/http"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
	"github.com/fivetwenty-io/logo-objects/pkg/logoclient"
)

const (
	configDirName  = ".logo"
	configFileName = "config.yml"
	cliUserAgent   = "logo-cli/1.0"
)

// Config represents the CLI configuration.
type Config struct {
	APIs       map[string]*APIConfig `json:"apis,omitempty"        yaml:"apis,omitempty"`
	CurrentAPI string                `json:"current_api,omitempty" yaml:"current_api,omitempty"`

	// Global settings
	Output  string `json:"output,omitempty"   yaml:"output,omitempty"`
	NATSURL string `json:"nats_url,omitempty" yaml:"nats_url,omitempty"`
}

// APIConfig represents configuration for a single REST endpoint.
//
// Passwords and client secrets are never written; they are read from
// LOGO_PASSWORD and LOGO_CLIENT_SECRET when a new grant is needed.
type APIConfig struct {
	Endpoint       string     `json:"endpoint"                   yaml:"endpoint"`
	TokenURL       string     `json:"token_url,omitempty"        yaml:"token_url,omitempty"`
	Username       string     `json:"username,omitempty"         yaml:"username,omitempty"`
	FirmNo         string     `json:"firm_no,omitempty"          yaml:"firm_no,omitempty"`
	ClientID       string     `json:"client_id,omitempty"        yaml:"client_id,omitempty"`
	Token          string     `json:"token,omitempty"            yaml:"token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
	RefreshToken   string     `json:"refresh_token,omitempty"    yaml:"refresh_token,omitempty"`
	LastRefreshed  *time.Time `json:"last_refreshed,omitempty"   yaml:"last_refreshed,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage logo CLI configuration including API endpoints and settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigUseCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the CLI configuration with tokens masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			masked := maskConfig(config)
			out := newPrinter(cmd)

			if out.format == constants.FormatTable {
				return displayConfigTable(out, masked)
			}

			return out.Value(masked)
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	var apiName string

	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long: `Set a global value (output, nats_url, current_api) or, with --name,
a value of one API (endpoint, token_url, username, firm_no, client_id).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			if apiName != "" {
				err = setAPIValue(config, apiName, args[0], args[1])
			} else {
				err = setGlobalValue(config, args[0], args[1])
			}

			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])

			return nil
		},
	}

	cmd.Flags().StringVar(&apiName, "name", "", "API configuration to change")

	return cmd
}

func newConfigUnsetCommand() *cobra.Command {
	var apiName string

	cmd := &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			if apiName != "" {
				err = setAPIValue(config, apiName, args[0], "")
			} else {
				err = setGlobalValue(config, args[0], "")
			}

			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", args[0])

			return nil
		},
	}

	cmd.Flags().StringVar(&apiName, "name", "", "API configuration to change")

	return cmd
}

func newConfigUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use NAME",
		Short: "Select the current API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			if _, exists := config.APIs[args[0]]; !exists {
				return fmt.Errorf("%w: '%s'", constants.ErrAPIConfigNotFound, args[0])
			}

			config.CurrentAPI = args[0]

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Using API %s\n", args[0])

			return nil
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	var apiName string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear configuration",
		Long:  "Remove all configuration, or only one API with --name",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiName != "" {
				config, err := loadConfig()
				if err != nil {
					return err
				}

				if _, exists := config.APIs[apiName]; !exists {
					return fmt.Errorf("%w: '%s'", constants.ErrAPIConfigNotFound, apiName)
				}

				delete(config.APIs, apiName)

				if config.CurrentAPI == apiName {
					config.CurrentAPI = ""
				}

				return saveConfigStruct(config)
			}

			configFile, err := configFilePath()
			if err != nil {
				return err
			}

			err = os.Remove(configFile)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove config file: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cleared all configuration")

			return nil
		},
	}

	cmd.Flags().StringVar(&apiName, "name", "", "clear configuration for one API only")

	return cmd
}

func setGlobalValue(config *Config, key, value string) error {
	switch key {
	case "output":
		if value != "" && !validFormat(value) {
			return fmt.Errorf("%w: '%s'", constants.ErrUnknownFormat, value)
		}

		config.Output = value
	case "nats_url":
		config.NATSURL = value
	case "current_api":
		if _, exists := config.APIs[value]; value != "" && !exists {
			return fmt.Errorf("%w: '%s'", constants.ErrAPIConfigNotFound, value)
		}

		config.CurrentAPI = value
	default:
		return fmt.Errorf("%w: '%s'", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

func setAPIValue(config *Config, name, key, value string) error {
	apiConfig, exists := config.APIs[name]
	if !exists {
		if key != "endpoint" || value == "" {
			return fmt.Errorf("%w: '%s'", constants.ErrAPIConfigNotFound, name)
		}

		apiConfig = &APIConfig{}
		config.APIs[name] = apiConfig
	}

	switch key {
	case "endpoint":
		apiConfig.Endpoint = logoclient.NormalizeEndpoint(value)
	case "token_url":
		apiConfig.TokenURL = value
	case "username":
		apiConfig.Username = value
	case "firm_no":
		apiConfig.FirmNo = value
	case "client_id":
		apiConfig.ClientID = value
	default:
		return fmt.Errorf("%w: '%s'", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

func maskConfig(config *Config) *Config {
	masked := &Config{
		APIs:       make(map[string]*APIConfig, len(config.APIs)),
		CurrentAPI: config.CurrentAPI,
		Output:     config.Output,
		NATSURL:    config.NATSURL,
	}

	for name, apiConfig := range config.APIs {
		clone := *apiConfig

		if clone.Token != "" {
			clone.Token = constants.MaskedSecret
		}

		if clone.RefreshToken != "" {
			clone.RefreshToken = constants.MaskedSecret
		}

		masked.APIs[name] = &clone
	}

	return masked
}

func displayConfigTable(out *printer, config *Config) error {
	names := make([]string, 0, len(config.APIs))
	for name := range config.APIs {
		names = append(names, name)
	}

	sort.Strings(names)

	rows := make([][]string, 0, len(names))

	for _, name := range names {
		apiConfig := config.APIs[name]

		current := ""
		if name == config.CurrentAPI {
			current = constants.CheckMarkSymbol
		}

		expires := constants.NotAvailable
		if apiConfig.TokenExpiresAt != nil {
			expires = apiConfig.TokenExpiresAt.Format(time.RFC3339)
		}

		rows = append(rows, []string{current, name, apiConfig.Endpoint, apiConfig.Username, apiConfig.FirmNo, expires})
	}

	err := out.Table([]string{"Current", "Name", "Endpoint", "Username", "Firm", "Token Expires"}, rows)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out.writer, "Output: %s\nNATS: %s\n", valueOrNA(config.Output), valueOrNA(config.NATSURL))

	return nil
}

func valueOrNA(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}

// configFilePath returns the config file in use, ~/.logo/config.yml by default.
func configFilePath() (string, error) {
	if configFile := viper.GetString("config"); configFile != "" {
		return configFile, nil
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, configDirName, configFileName), nil
}

func loadConfig() (*Config, error) {
	configFile, err := configFilePath()
	if err != nil {
		return nil, err
	}

	config := &Config{APIs: make(map[string]*APIConfig)}

	// configFile comes from the --config flag or the user's home directory
	// #nosec G304
	data, err := os.ReadFile(configFile)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}

	if config.APIs == nil {
		config.APIs = make(map[string]*APIConfig)
	}

	return config, nil
}

func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// extractDomainFromEndpoint extracts the host portion of an endpoint for use
// as the default API name.
func extractDomainFromEndpoint(endpoint string) string {
	domain := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")

	if idx := strings.Index(domain, "/"); idx != -1 {
		domain = domain[:idx]
	}

	if idx := strings.Index(domain, ":"); idx != -1 {
		domain = domain[:idx]
	}

	return domain
}

// resolveAPI returns the API selected by --api/LOGO_API or the current API.
// An --api value that is not a configured name is used as an ad-hoc endpoint
// and gets an empty name, so nothing is persisted for it.
func resolveAPI(config *Config) (string, *APIConfig, error) {
	if selected := viper.GetString("api"); selected != "" {
		if apiConfig, exists := config.APIs[selected]; exists {
			return selected, apiConfig, nil
		}

		endpoint := logoclient.NormalizeEndpoint(selected)
		for name, apiConfig := range config.APIs {
			if apiConfig.Endpoint == endpoint {
				return name, apiConfig, nil
			}
		}

		return "", &APIConfig{Endpoint: endpoint}, nil
	}

	if config.CurrentAPI == "" {
		if len(config.APIs) == 0 {
			return "", nil, constants.ErrNoAPIConfigured
		}

		names := make([]string, 0, len(config.APIs))
		for name := range config.APIs {
			names = append(names, name)
		}

		sort.Strings(names)
		config.CurrentAPI = names[0]
	}

	apiConfig, exists := config.APIs[config.CurrentAPI]
	if !exists {
		return "", nil, fmt.Errorf("%w: '%s'", constants.ErrAPIConfigNotFound, config.CurrentAPI)
	}

	return config.CurrentAPI, apiConfig, nil
}

// CreateClientWithAPI creates a client for the API selected on the command
// line or the current API, with tokens refreshed and persisted.
func CreateClientWithAPI(ctx context.Context) (logo.Client, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}

	name, apiConfig, err := resolveAPI(config)
	if err != nil {
		return nil, err
	}

	if apiConfig.Endpoint == "" {
		return nil, constants.ErrNoAPIConfigured
	}

	catalogData, err := catalogOverride()
	if err != nil {
		return nil, err
	}

	logger := newLogger()
	clientConfig := buildClientConfig(config, apiConfig, logger)
	clientConfig.Catalog = catalogData
	tokenManager := createTokenManager(name, apiConfig, logger)

	logoClient, err := client.NewWithTokenManager(ctx, clientConfig, tokenManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return logoClient, nil
}

func buildClientConfig(config *Config, apiConfig *APIConfig, logger logo.Logger) *logo.Config {
	clientConfig := &logo.Config{
		APIEndpoint:    logoclient.NormalizeEndpoint(apiConfig.Endpoint),
		TokenURL:       apiConfig.TokenURL,
		FirmNo:         apiConfig.FirmNo,
		RequestTimeout: viper.GetDuration("timeout"),
		RetryMax:       viper.GetInt("retries"),
		Debug:          viper.GetBool("verbose"),
		Logger:         logger,
		UserAgent:      cliUserAgent,
	}

	natsURL := viper.GetString("nats_url")
	if natsURL == "" {
		natsURL = config.NATSURL
	}

	if natsURL != "" && viper.GetBool("publish_events") {
		clientConfig.Events = &logo.EventsConfig{NATSURL: natsURL}
	}

	return clientConfig
}

func createTokenManager(name string, apiConfig *APIConfig, logger logo.Logger) internalhttp.TokenManager {
	if token := viper.GetString("token"); token != "" {
		return auth.NewStaticTokenManager(token)
	}

	if !hasAuthInfo(apiConfig) {
		return nil
	}

	oauth2Config := buildOAuth2Config(apiConfig)

	if name == "" {
		return auth.NewOAuth2TokenManager(oauth2Config)
	}

	manager := auth.NewConfigTokenManager(oauth2Config, NewConfigPersister(), name, apiConfig.Token, getInitialTokenExpiry(apiConfig))
	manager.SetLogger(logger)

	return manager
}

func hasAuthInfo(apiConfig *APIConfig) bool {
	return apiConfig.Token != "" || apiConfig.RefreshToken != "" || apiConfig.Username != "" || apiConfig.ClientID != ""
}

func buildOAuth2Config(apiConfig *APIConfig) *auth.OAuth2Config {
	tokenURL := apiConfig.TokenURL
	if tokenURL == "" {
		tokenURL = auth.TokenURL(logoclient.NormalizeEndpoint(apiConfig.Endpoint))
	}

	return &auth.OAuth2Config{
		TokenURL:     tokenURL,
		ClientID:     apiConfig.ClientID,
		ClientSecret: viper.GetString("client_secret"),
		Username:     apiConfig.Username,
		Password:     viper.GetString("password"),
		FirmNo:       apiConfig.FirmNo,
		RefreshToken: apiConfig.RefreshToken,
		AccessToken:  apiConfig.Token,
	}
}

func getInitialTokenExpiry(apiConfig *APIConfig) time.Time {
	if apiConfig.TokenExpiresAt != nil {
		return *apiConfig.TokenExpiresAt
	}

	return time.Time{}
}
