package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Build info (set via ldflags)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const appDesc = "Project planning tool: browse a project tree and preview its Markdown files"

// config is the resolved runtime configuration. Values come from flags,
// then MDPLAN_* environment variables, then defaults.
type config struct {
	Port     int
	Browser  bool
	Sort     bool
	LogLevel string
}

func loadConfig(v *viper.Viper) config {
	return config{
		Port:     v.GetInt("port"),
		Browser:  v.GetBool("browser"),
		Sort:     v.GetBool("sort"),
		LogLevel: v.GetString("log-level"),
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("MDPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 6419)
	v.SetDefault("browser", true)
	v.SetDefault("sort", true)
	v.SetDefault("log-level", "info")
	return v
}

func newLogger(level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}

// resolveProjectRoot turns the CLI argument into an absolute, symlink-free
// directory path. Anything else is an errPath.
func resolveProjectRoot(targetPath string) (string, error) {
	// Expand ~ to home directory
	if targetPath == "~" || strings.HasPrefix(targetPath, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("%w: cannot determine home directory: %v", errPath, err)
		}
		targetPath = filepath.Join(homeDir, strings.TrimPrefix(targetPath[1:], "/"))
	}

	absPath, err := filepath.Abs(filepath.Clean(targetPath))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errPath, err)
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s does not exist", errPath, targetPath)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", errPath, targetPath)
	}
	return resolved, nil
}

func newRootCmd() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:           "mdplan <path>",
		Short:         appDesc,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(v)
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			root, err := resolveProjectRoot(args[0])
			if err != nil {
				return err
			}
			return serve(cmd.Context(), root, cfg, logger)
		},
	}

	flags := cmd.PersistentFlags()
	flags.Int("port", 6419, "Port to serve on")
	flags.Bool("browser", true, "Open browser automatically")
	flags.Bool("sort", true, "List directories first, then files, alphabetically")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	v.BindPFlags(flags)

	cmd.AddCommand(newTreeCmd(v))
	return cmd
}

func serve(ctx context.Context, root string, cfg config, logger *logrus.Logger) error {
	a, err := newApp(root, osLister{}, cfg.Sort, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.start(ctx)

	mux := http.NewServeMux()
	a.registerRoutes(mux)

	addr := fmt.Sprintf("localhost:%d", cfg.Port)
	url := fmt.Sprintf("http://%s", addr)
	fmt.Printf("mdplan at %s\n", url)
	fmt.Printf("Browsing %s\n", root)
	fmt.Println("Press Ctrl+C to quit")

	if cfg.Browser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			openURL(logger, url)
		}()
	}

	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout omitted: websocket connections are long-lived
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Server shutdown error")
		}
	}()

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openURL(logger *logrus.Logger, url string) {
	var cmd string
	var args []string

	switch {
	case fileExists("/usr/bin/open"): // macOS
		cmd = "open"
		args = []string{url}
	case fileExists("/usr/bin/xdg-open"): // Linux
		cmd = "xdg-open"
		args = []string{url}
	default: // Windows
		cmd = "cmd"
		args = []string{"/c", "start", url}
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logger.WithError(err).WithField("url", url).Warn("Failed to open URL")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
