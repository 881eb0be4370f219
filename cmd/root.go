package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/maxbolgarin/gitb-install/internal/config"
	"github.com/maxbolgarin/gitb-install/internal/fetcher"
	"github.com/maxbolgarin/gitb-install/internal/output"
	"github.com/maxbolgarin/gitb-install/internal/utils"
)

var InstallerVersion = "dev"

type rootOptions struct {
	getenv func(string) string

	releaseVersion string
	root           string
	configPath     string
	overrideURL    string
	timeout        time.Duration
	kaTimeout      time.Duration
	userAgent      string
	proxyURL       string
	proxyUsername  string
	proxyPassword  string
	headers        []string
	maxRedirects   int
	debug          bool
	quiet          bool
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	opts := &rootOptions{getenv: getenv}
	cmd := &cobra.Command{
		Use:           utils.ToolName,
		Short:         "Download the gitb release binary into the package bin directory",
		Version:       InstallerVersion,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			utils.InitLogger(opts.debug)
			utils.SetLogOutput(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.install(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.root, "root", ".", "Package root; the binary goes to <root>/<install_dir>/<binary>")
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "f", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVarP(&opts.releaseVersion, "release", "r", "", "Release version to install (defaults to $"+utils.EnvPackageVersion+")")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.Flags().StringVarP(&opts.overrideURL, "url", "u", "", "Download from this URL instead of the release host")
	cmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", utils.DefaultTimeout, "Overall download timeout (eg. 30s, 5m)")
	cmd.Flags().DurationVarP(&opts.kaTimeout, "keep-alive-timeout", "k", utils.DefaultKATimeout, "Keep-alive timeout for client (eg. 10s, 1m)")
	cmd.Flags().StringVarP(&opts.userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent")
	cmd.Flags().StringVarP(&opts.proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	cmd.Flags().StringVar(&opts.proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	cmd.Flags().StringVar(&opts.proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", []string{}, "Custom headers (like 'X-Mirror-Key: abc'); can be specified multiple times")
	cmd.Flags().IntVar(&opts.maxRedirects, "max-redirects", fetcher.DefaultMaxRedirects, "Maximum number of redirects to follow")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Print nothing on success")

	cmd.AddCommand(newCleanCmd(opts), newURLCmd(opts))
	return cmd
}

// loadConfig merges the config file with flags the user set explicitly.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Timeout = o.timeout
	}
	if flags.Changed("keep-alive-timeout") {
		cfg.KeepAliveTimeout = o.kaTimeout
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = o.userAgent
	}
	if flags.Changed("proxy") {
		cfg.Proxy = o.proxyURL
	}
	if flags.Changed("max-redirects") {
		cfg.MaxRedirects = o.maxRedirects
	}
	if flags.Changed("header") {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range utils.ParseHeaderArgs(o.headers) {
			cfg.Headers[k] = v
		}
	}
	return cfg, cfg.Validate()
}

func (o *rootOptions) version() string {
	if o.releaseVersion != "" {
		return o.releaseVersion
	}
	return o.getenv(utils.EnvPackageVersion)
}

func (o *rootOptions) install(cmd *cobra.Command) error {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	release := cfg.Release()
	resolved, err := release.Resolve(o.version())
	if err != nil {
		var cfgErr *fetcher.ConfigurationError
		if errors.As(err, &cfgErr) && cfgErr.Field == "version" {
			return fmt.Errorf("%w (set --release or $%s)", err, utils.EnvPackageVersion)
		}
		return err
	}
	target := resolved.String()
	if o.overrideURL != "" {
		target = o.overrideURL
	}

	clientConfig := cfg.HTTPClientConfig()
	if o.proxyUsername != "" {
		clientConfig.ProxyUsername = o.proxyUsername
		clientConfig.ProxyPassword = o.proxyPassword
	}
	fetchOpts := fetcher.Options{MaxRedirects: cfg.MaxRedirects, Headers: cfg.Headers}
	if token := o.getenv(utils.EnvGitHubToken); token != "" {
		if host, err := release.HostURL(); err == nil {
			fetchOpts.Token = &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
			fetchOpts.AuthHost = host.Host
		}
	}

	stdout := cmd.OutOrStdout()
	if !o.quiet {
		output.PrintInfo(stdout, fmt.Sprintf("Downloading %s v%s from %s...", cfg.Repo, resolved.Version(), sourceName(target)))
	}
	display := output.NewManager(stdout, o.quiet)
	fetchOpts.Progress = display.UpdateProgress

	dest := cfg.TargetPath(o.root)
	if installed, _ := fetcher.IsInstalled(dest); installed {
		log.Debug().Str("op", "cmd/install").Msgf("Replacing existing binary at %s", dest)
	}
	display.StartDisplay(fmt.Sprintf("Installing %s", dest))
	result, err := fetcher.New(utils.NewInstallerHTTPClient(clientConfig), fetchOpts).Fetch(cmd.Context(), target, dest)
	if err != nil {
		display.ReportError("")
		display.StopDisplay()
		return err
	}
	display.Complete(result.Message())
	display.StopDisplay()
	log.Info().Str("op", "cmd/install").Msgf("Installed %s from %s", result.Path, result.URL)
	return nil
}

func sourceName(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return target
	}
	if u.Host == "github.com" {
		return "GitHub releases"
	}
	return u.Host
}

// Run executes the installer and returns the process exit code.
func Run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(getenv)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		output.PrintError(stderr, fmt.Sprintf("Error: %v", err))
		return 1
	}
	return 0
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
