// Command stevedore installs, purges, pre-fetches, or freezes a role's
// compose-defined deployment on the local host.
//
// Usage:
//
//	stevedore -role web -file docker-compose.yml
//	stevedore -role web -file docker-compose.yml -mode purge
//	stevedore -role web -file docker-compose.yml -mode freeze -release-tag v1.2.3
//
// A mode listed in -overrides is skipped so the caller can run its own
// sequence in place of that mode. Skipping is signaled by exit code 0 with a
// "skipped" outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	coredeploy "github.com/artpar/stevedore/internal/core/deploy"
	shelldeploy "github.com/artpar/stevedore/internal/shell/deploy"
	"github.com/artpar/stevedore/internal/shell/docker"
	"github.com/artpar/stevedore/internal/shell/history"
	"github.com/artpar/stevedore/internal/shell/images"
	"github.com/artpar/stevedore/internal/shell/state"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess     = 0
	ExitConfigError = 1
	ExitUsageError  = 2
	ExitDeployError = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")

	role := flag.String("role", "", "Role name (required)")
	file := flag.String("file", "", "Path to the composition document, or - for stdin (required)")
	mode := flag.String("mode", "", "Deploy mode: install, purge, prefetch, freeze (default install)")
	overrides := flag.String("overrides", "", "Comma-separated modes the caller implements itself (skipped)")
	keepImages := flag.Bool("keep-images", false, "Skip image removal during purge")
	forceRecreate := flag.Bool("force-recreate", false, "Force container recreation during install")

	registryDomain := flag.String("registry-domain", "", "Release registry domain (freeze)")
	registryUsername := flag.String("registry-username", "", "Release registry username (freeze)")
	releaseTag := flag.String("release-tag", "", "Release tag (freeze)")

	flag.Parse()

	if *showVersion {
		fmt.Printf("stevedore %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	logger := SetupLogger(cfg)

	req, err := buildRequest(cfg, *role, *file, *mode, *overrides, *keepImages, *forceRecreate,
		*registryDomain, *registryUsername, *releaseTag)
	if err != nil {
		logger.Error("invalid invocation", "error", err)
		return ExitUsageError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting stevedore",
		"version", Version,
		"role", req.RoleName,
		"mode", req.Mode,
	)

	dispatcher, cleanup, err := buildDispatcher(cfg, logger)
	if err != nil {
		logger.Error("failed to set up", "error", err)
		return ExitConfigError
	}
	defer cleanup()

	result, err := dispatcher.Dispatch(ctx, req)
	if err != nil {
		logger.Error("deployment failed",
			"role", req.RoleName,
			"mode", req.Mode,
			"error", err,
		)
		return ExitDeployError
	}

	for _, warning := range result.Warnings {
		logger.Warn("non-fatal failure", "role", req.RoleName, "detail", warning)
	}

	if result.Skipped() {
		logger.Info("outcome", "status", "skipped", "role", req.RoleName, "mode", result.Mode)
	} else {
		logger.Info("outcome", "status", "success", "role", req.RoleName, "mode", result.Mode, "warnings", len(result.Warnings))
	}

	return ExitSuccess
}

// buildRequest assembles the deployment request from flags and config.
// Registry credentials fall back to config values (the password always comes
// from config or STEVEDORE_REGISTRY_PASSWORD).
func buildRequest(cfg *Config, role, file, mode, overrides string, keepImages, forceRecreate bool,
	registryDomain, registryUsername, releaseTag string) (*coredeploy.Request, error) {

	if role == "" {
		return nil, coredeploy.ErrMissingRole
	}
	if file == "" {
		return nil, coredeploy.ErrMissingComposeData
	}

	composeData, err := readComposeFile(file)
	if err != nil {
		return nil, err
	}

	var overrideNames []string
	if overrides != "" {
		for _, name := range strings.Split(overrides, ",") {
			overrideNames = append(overrideNames, strings.TrimSpace(name))
		}
	}
	overrideSet, err := coredeploy.ParseOverrides(overrideNames)
	if err != nil {
		return nil, err
	}

	creds := coredeploy.Credentials{
		Domain:     cfg.Registry.Domain,
		Username:   cfg.Registry.Username,
		Password:   cfg.Registry.Password,
		ReleaseTag: cfg.Registry.ReleaseTag,
	}
	if registryDomain != "" {
		creds.Domain = registryDomain
	}
	if registryUsername != "" {
		creds.Username = registryUsername
	}
	if releaseTag != "" {
		creds.ReleaseTag = releaseTag
	}

	req := &coredeploy.Request{
		RoleName:            role,
		ComposeData:         composeData,
		Mode:                mode,
		Overrides:           overrideSet,
		KeepImages:          keepImages,
		ForceRecreate:       forceRecreate,
		RegistryCredentials: creds,
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return req, nil
}

// readComposeFile reads the composition document from a file or stdin.
func readComposeFile(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read composition from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read composition file: %w", err)
	}
	return string(data), nil
}

// buildDispatcher wires the dispatcher's collaborators from config.
func buildDispatcher(cfg *Config, logger *slog.Logger) (*shelldeploy.Dispatcher, func(), error) {
	stateStore, err := state.NewFileStore(cfg.State.Dir)
	if err != nil {
		return nil, nil, err
	}

	dockerClient, err := docker.NewDockerClient(cfg.Docker.Host)
	if err != nil {
		return nil, nil, err
	}

	var hist history.Store
	if cfg.History.Enabled {
		hist, err = history.NewSQLiteStore(cfg.History.DSN, logger)
		if err != nil {
			// History is best-effort; run without it.
			logger.Warn("invocation history unavailable", "dsn", cfg.History.DSN, "error", err)
			hist = nil
		}
	}

	engine := docker.NewComposeEngine(dockerClient, logger)
	imageManager := images.NewManager(dockerClient, logger)
	dispatcher := shelldeploy.NewDispatcher(stateStore, imageManager, engine, hist, logger)

	cleanup := func() {
		if hist != nil {
			if err := hist.Close(); err != nil {
				logger.Warn("failed to close history store", "error", err)
			}
		}
		if err := dockerClient.Close(); err != nil {
			logger.Warn("failed to close docker client", "error", err)
		}
	}

	return dispatcher, cleanup, nil
}
