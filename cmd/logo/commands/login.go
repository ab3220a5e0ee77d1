package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/logo-objects/internal/auth"
	"github.com/fivetwenty-io/logo-objects/internal/constants"
	"github.com/fivetwenty-io/logo-objects/pkg/logoclient"
)

// ErrEndpointRequired is returned when login has no endpoint to use.
var ErrEndpointRequired = errors.New("API endpoint is required")

type loginOptions struct {
	name         string
	username     string
	password     string
	firmNo       string
	clientID     string
	clientSecret string
	tokenURL     string
}

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to a Logo REST endpoint",
		Long: `Obtain a token with the password grant (username, password, firm) or the
client credentials grant and store it for later commands. The password and
client secret are not saved.`,
		Example: `  logo login --api https://erp.example.com/api/v1 -u LOGO --firm 1
  LOGO_PASSWORD=secret logo login --api erp -u LOGO --firm 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			return runLogin(ctx, cmd, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "name to store the API under (default is the host name)")
	cmd.Flags().StringVarP(&opts.username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&opts.password, "password", "p", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&opts.firmNo, "firm", "", "firm number the token is issued for")
	cmd.Flags().StringVar(&opts.clientID, "client-id", "", "OAuth2 client id")
	cmd.Flags().StringVar(&opts.clientSecret, "client-secret", "", "OAuth2 client secret")
	cmd.Flags().StringVar(&opts.tokenURL, "token-url", "", "token endpoint (default is <api>/token)")

	return cmd
}

func runLogin(ctx context.Context, cmd *cobra.Command, opts *loginOptions) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	name, apiConfig, err := loginTarget(cmd, config, reader, opts.name)
	if err != nil {
		return err
	}

	applyLoginOptions(apiConfig, opts)

	if apiConfig.Username == "" && apiConfig.ClientID == "" {
		apiConfig.Username = prompt(cmd, reader, "Username: ")
	}

	password := opts.password
	if password == "" {
		password = viper.GetString("password")
	}

	if password == "" && apiConfig.Username != "" {
		password, err = promptPassword(cmd, reader)
		if err != nil {
			return err
		}
	}

	clientSecret := opts.clientSecret
	if clientSecret == "" {
		clientSecret = viper.GetString("client_secret")
	}

	oauth2Config := buildOAuth2Config(apiConfig)
	oauth2Config.Password = password
	oauth2Config.ClientSecret = clientSecret
	oauth2Config.AccessToken = ""
	oauth2Config.RefreshToken = ""

	manager := auth.NewOAuth2TokenManager(oauth2Config)

	_, err = manager.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	token := manager.CurrentToken()
	apiConfig.Token = token.AccessToken
	apiConfig.RefreshToken = token.RefreshToken
	apiConfig.TokenExpiresAt = nil

	if !token.ExpiresAt.IsZero() {
		expiresAt := token.ExpiresAt
		apiConfig.TokenExpiresAt = &expiresAt
	}

	config.APIs[name] = apiConfig
	config.CurrentAPI = name

	err = saveConfigStruct(config)
	if err != nil {
		return err
	}

	who := apiConfig.Username
	if who == "" {
		who = apiConfig.ClientID
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s (%s) as %s\n", name, apiConfig.Endpoint, who)

	if apiConfig.FirmNo != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Firm: %s\n", apiConfig.FirmNo)
	}

	return nil
}

// loginTarget finds the API to log in to from --api, the current API or a
// prompt, creating a new entry for unknown endpoints.
func loginTarget(cmd *cobra.Command, config *Config, reader *bufio.Reader, name string) (string, *APIConfig, error) {
	selected := viper.GetString("api")
	if _, exists := config.APIs[name]; selected == "" && exists {
		selected = name
	}

	if selected == "" {
		selected = config.CurrentAPI
	}

	if selected == "" {
		selected = prompt(cmd, reader, "API endpoint: ")
	}

	if selected == "" {
		return "", nil, ErrEndpointRequired
	}

	if apiConfig, exists := config.APIs[selected]; exists {
		return selected, apiConfig, nil
	}

	endpoint := logoclient.NormalizeEndpoint(selected)
	for existing, apiConfig := range config.APIs {
		if apiConfig.Endpoint == endpoint {
			return existing, apiConfig, nil
		}
	}

	if name == "" {
		name = extractDomainFromEndpoint(endpoint)
	}

	return name, &APIConfig{Endpoint: endpoint}, nil
}

func applyLoginOptions(apiConfig *APIConfig, opts *loginOptions) {
	if opts.username != "" {
		apiConfig.Username = opts.username
	}

	if opts.firmNo != "" {
		apiConfig.FirmNo = opts.firmNo
	}

	if opts.clientID != "" {
		apiConfig.ClientID = opts.clientID
	}

	if opts.tokenURL != "" {
		apiConfig.TokenURL = opts.tokenURL
	}
}

func prompt(cmd *cobra.Command, reader *bufio.Reader, label string) string {
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), label)

	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}

	return strings.TrimSpace(line)
}

func promptPassword(cmd *cobra.Command, reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int

	if cmd.InOrStdin() != os.Stdin || !term.IsTerminal(fd) {
		return prompt(cmd, reader, "Password: "), nil
	}

	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")

	password, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(cmd.ErrOrStderr())

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(password), nil
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored tokens",
		Long:  "Remove the stored tokens of the current API, or of the API given with --name",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			if name == "" {
				name = config.CurrentAPI
			}

			apiConfig, exists := config.APIs[name]
			if !exists {
				return fmt.Errorf("%w: '%s'", constants.ErrAPIConfigNotFound, name)
			}

			apiConfig.Token = ""
			apiConfig.RefreshToken = ""
			apiConfig.TokenExpiresAt = nil
			apiConfig.LastRefreshed = nil

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged out of %s\n", name)

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "API to log out of")

	return cmd
}
