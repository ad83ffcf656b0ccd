package commands

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/orbo-dev/orbo/internal/cli/auth"
	"github.com/orbo-dev/orbo/internal/cli/client"
	"github.com/orbo-dev/orbo/internal/cli/orgselect"
	"github.com/orbo-dev/orbo/internal/cli/userconfig"
)

// runtime carries the collaborators a command runs with. Tests replace them
// through Options.
type runtime struct {
	tokens    auth.TokenStore
	out       io.Writer
	server    string
	password  func() (string, error)
	selectOrg func([]client.Organization) (*client.Organization, error)
}

// Option configures a command run
type Option func(*runtime)

// WithTokenStore replaces the OS keyring
func WithTokenStore(store auth.TokenStore) Option {
	return func(r *runtime) { r.tokens = store }
}

// WithOutput redirects command output
func WithOutput(w io.Writer) Option {
	return func(r *runtime) { r.out = w }
}

// WithServer overrides the configured server URL
func WithServer(url string) Option {
	return func(r *runtime) { r.server = url }
}

// WithPasswordReader replaces the terminal password prompt
func WithPasswordReader(fn func() (string, error)) Option {
	return func(r *runtime) { r.password = fn }
}

// WithOrgSelector replaces the interactive organization picker
func WithOrgSelector(fn func([]client.Organization) (*client.Organization, error)) Option {
	return func(r *runtime) { r.selectOrg = fn }
}

func newRuntime(opts ...Option) *runtime {
	r := &runtime{
		tokens:    auth.Default,
		out:       os.Stdout,
		password:  readPassword,
		selectOrg: orgselect.Prompt,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// serverURL resolves the server: flag, then ORBO_SERVER, then the saved config
func (r *runtime) serverURL(cfg *userconfig.UserConfig) (string, error) {
	server := r.server
	if server == "" {
		server = os.Getenv("ORBO_SERVER")
	}
	if server == "" {
		server = cfg.ServerURL
	}
	if server == "" {
		return "", fmt.Errorf("no server configured. Run 'orbo login --server <url>' first")
	}
	return strings.TrimRight(server, "/"), nil
}

// authedClient loads the saved config and token and returns a client for the server
func (r *runtime) authedClient() (*client.Client, *userconfig.UserConfig, error) {
	cfg, err := userconfig.Load()
	if err != nil {
		return nil, nil, err
	}

	server, err := r.serverURL(cfg)
	if err != nil {
		return nil, nil, err
	}

	token, err := r.tokens.LoadToken(server)
	if err != nil {
		return nil, nil, err
	}

	return client.New(server, token), cfg, nil
}

// explain turns 401 and 403 responses into actionable messages
func explain(err error) error {
	switch client.StatusCode(err) {
	case http.StatusUnauthorized:
		return fmt.Errorf("not authenticated (401): your session is missing or expired, run 'orbo login'")
	case http.StatusForbidden:
		return fmt.Errorf("access denied (403): %w", err)
	}
	return err
}

func readPassword() (string, error) {
	// Check if stdin is a terminal (not piped)
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or ORBO_PASSWORD env var)")
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}
