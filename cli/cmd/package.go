package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	cliconfig "github.com/fluxbase-eu/pakto/cli/config"
	"github.com/fluxbase-eu/pakto/internal/cache"
	"github.com/fluxbase-eu/pakto/internal/converter"
	"github.com/fluxbase-eu/pakto/internal/npm"
	"github.com/fluxbase-eu/pakto/internal/ratelimit"
)

// stdout receives command output; tests replace it.
var stdout io.Writer = os.Stdout

// keychain looks up registry tokens stored by `pakto login`.
var keychain = cliconfig.NewKeychainStore()

// isLocal reports whether arg names a package directory rather than a
// registry spec.
func isLocal(arg string) bool {
	if strings.HasPrefix(arg, ".") || strings.HasPrefix(arg, "/") {
		return true
	}
	info, err := fs.Stat(arg)
	return err == nil && info.IsDir()
}

// loadPackage opens a package directory or installs a package from the
// registry.
func loadPackage(ctx context.Context, arg string) (*converter.Package, error) {
	if isLocal(arg) {
		dir, err := npm.OpenDir(fs, arg)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("dir", arg).Msg("Using local package")
		return converter.Load(dir, "/")
	}

	spec, err := npm.ParseSpec(arg)
	if err != nil {
		return nil, err
	}
	client, cleanup, err := newRegistryClient()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	inst, err := npm.NewInstaller(client, cfg.NPM.Workers).Install(ctx, spec)
	if err != nil {
		return nil, err
	}
	return converter.Load(inst.FS, inst.Root)
}

// newRegistryClient builds a client from the npm and cache configuration.
// The returned cleanup releases the cache and rate limit store.
func newRegistryClient() (*npm.Client, func(), error) {
	token := cfg.NPM.AuthToken
	if token == "" {
		stored, err := keychain.Load(cfg.NPM.Registry)
		if err != nil {
			log.Debug().Err(err).Msg("No keychain token available")
		}
		token = stored
	}

	store, err := ratelimit.NewStore(&cfg.NPM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create rate limit store: %w", err)
	}
	c, err := cache.New(&cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("Cache unavailable, fetching without it")
		c = cache.Nop{}
	}

	client := npm.NewClient(cfg.NPM.Registry,
		npm.WithTimeout(cfg.NPM.Timeout),
		npm.WithUserAgent(cfg.NPM.UserAgent),
		npm.WithAuthToken(token),
		npm.WithMaxAttempts(cfg.NPM.MaxAttempts),
		npm.WithLimiter(ratelimit.NewLimiter(ratelimit.Options{
			PerSecond: cfg.NPM.RateLimit,
			Burst:     cfg.NPM.Burst,
			Store:     store,
		})),
		npm.WithCache(c),
		npm.WithMetrics(metrics),
	)
	cleanup := func() {
		if err := errors.Join(c.Close(), store.Close()); err != nil {
			log.Debug().Err(err).Msg("Failed to release registry resources")
		}
	}
	return client, cleanup, nil
}

// converterOptions maps the configuration onto converter options.
func converterOptions() converter.Options {
	return converter.Options{
		Namespace:        cfg.Output.Namespace,
		Target:           cfg.Output.ESTarget(),
		Strategy:         cfg.Bundle.ParsedStrategy(),
		MaxSize:          cfg.Bundle.MaxSize,
		Exclude:          cfg.Bundle.ExcludeDependencies,
		ForceInline:      cfg.Bundle.ForceInline,
		Globals:          cfg.Bundle.Globals,
		DefaultIncludes:  cfg.Polyfills.DefaultIncludes,
		Excludes:         cfg.Polyfills.DefaultExcludes,
		PolyfillMappings: cfg.Polyfills.Mappings,
	}
}

// parseGlobals parses "package=Global" pairs.
func parseGlobals(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		pkg, global, ok := strings.Cut(p, "=")
		if !ok || pkg == "" || global == "" {
			return nil, fmt.Errorf("invalid global %q (expected package=Global)", p)
		}
		out[pkg] = global
	}
	return out, nil
}
