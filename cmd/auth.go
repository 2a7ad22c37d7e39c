package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yogaportal/attendance-kiosk/internal/config"
	"github.com/yogaportal/attendance-kiosk/internal/portal"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the yoga portal",
	Long: `Authenticates with the yoga portal and stores the session token for the
other commands. Credentials come from --email/--password, the PORTAL_EMAIL and
PORTAL_PASSWORD environment variables, or an interactive prompt.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in portal account",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().String("email", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password")
}

// promptValue returns val, then the env var, then a line read from in.
func promptValue(in *bufio.Reader, label, val, envKey string) (string, error) {
	if val != "" {
		return val, nil
	}
	if v := os.Getenv(envKey); v != "" {
		return v, nil
	}
	fmt.Printf("%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// Replaced in tests.
var (
	stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	readPassword    = func() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) }
)

// promptSecret is promptValue without echo when stdin is a terminal.
func promptSecret(in *bufio.Reader, label, val, envKey string) (string, error) {
	if val != "" || os.Getenv(envKey) != "" || !stdinIsTerminal() {
		return promptValue(in, label, val, envKey)
	}
	fmt.Printf("%s: ", label)
	secret, err := readPassword()
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(string(secret)), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	client, err := newPortalClient(cfg)
	if err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	email, err := promptValue(in, "Email", mustGetString(cmd, "email"), "PORTAL_EMAIL")
	if err != nil {
		return err
	}
	password, err := promptSecret(in, "Password", mustGetString(cmd, "password"), "PORTAL_PASSWORD")
	if err != nil {
		return err
	}

	user, err := client.Login(cmd.Context(), email, password)
	if err != nil {
		var apiErr *portal.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("login failed: %s", apiErr.Message)
		}
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Printf("Logged in as %s (%s)\n", user.Name, user.Role)
	fmt.Printf("Token stored in %s\n", cfg.API.TokenFile)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	client, err := newPortalClient(cfg)
	if err != nil {
		return err
	}
	if err := client.Logout(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	fmt.Println("Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	client, err := newPortalClient(cfg)
	if err != nil {
		return err
	}

	token, err := client.Tokens().Token()
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if token == "" {
		fmt.Println("Not logged in")
		return nil
	}

	user, err := client.CurrentUser(cmd.Context())
	if errors.Is(err, portal.ErrUnauthorized) {
		fmt.Println("Session expired, run 'kiosk login' again")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	fmt.Printf("Name:  %s\n", user.Name)
	fmt.Printf("Email: %s\n", user.Email)
	fmt.Printf("Role:  %s\n", user.Role)
	if exp, ok := portal.TokenExpiry(token); ok {
		fmt.Printf("Token expires: %s\n", exp.Local().Format(time.DateTime))
	}
	return nil
}
