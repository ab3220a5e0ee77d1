package commands_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// isolateConfig points the CLI at a config file in a temporary directory
// and resets viper when the test ends. Tests using it must not run in
// parallel.
func isolateConfig(t *testing.T) string {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	configFile := filepath.Join(t.TempDir(), "config.yml")
	viper.Set("config", configFile)

	return configFile
}

// runCommand executes cmd with args and returns what it printed.
func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

type capturedRequest struct {
	Method        string
	Path          string
	RawPath       string
	Query         string
	Authorization string
	Body          string
}

// fakeService is a Logo REST endpoint answering every request with the
// handler's response and remembering what it received.
type fakeService struct {
	*httptest.Server

	mu       sync.Mutex
	requests []capturedRequest
}

func newFakeService(t *testing.T, handler http.HandlerFunc) *fakeService {
	t.Helper()

	service := &fakeService{}
	service.Server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)

		service.mu.Lock()
		service.requests = append(service.requests, capturedRequest{
			Method:        request.Method,
			Path:          request.URL.Path,
			RawPath:       request.URL.EscapedPath(),
			Query:         request.URL.RawQuery,
			Authorization: request.Header.Get("Authorization"),
			Body:          string(body),
		})
		service.mu.Unlock()

		handler(writer, request)
	}))
	t.Cleanup(service.Close)

	return service
}

func (s *fakeService) Requests() []capturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]capturedRequest(nil), s.requests...)
}

func writeJSON(writer http.ResponseWriter, status int, body string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_, _ = io.WriteString(writer, body)
}

// useService selects service with a static token for the next command.
func useService(service *fakeService, output string) {
	viper.Set("api", service.URL)
	viper.Set("token", "cli-token")
	viper.Set("output", output)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
