package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"git.uuxo.net/uuxo/mimedb/internal/auth"
	"git.uuxo.net/uuxo/mimedb/internal/backend"
	"git.uuxo.net/uuxo/mimedb/internal/config"
	"git.uuxo.net/uuxo/mimedb/internal/handlers"
	"git.uuxo.net/uuxo/mimedb/internal/logging"
	"git.uuxo.net/uuxo/mimedb/internal/metrics"
	"git.uuxo.net/uuxo/mimedb/internal/mimestore"
	"git.uuxo.net/uuxo/mimedb/internal/registry"
	"git.uuxo.net/uuxo/mimedb/internal/server"
)

// seedStore builds the initial store for conf.Database.Seed. The configured
// extra mappings are applied on top in every mode.
func seedStore(ctx context.Context, conf *config.Config, b backend.Backend) (*mimestore.Store, error) {
	extra := conf.Database.ExtraMappings()
	switch conf.Database.Seed {
	case config.SeedDefaults:
		return mimestore.New(extra), nil
	case config.SeedEmpty:
		return mimestore.NewEmpty(extra), nil
	case config.SeedBackend:
		s, err := b.Load(ctx)
		metrics.ObserveBackend(b.Name(), "load", err)
		if err != nil {
			return nil, fmt.Errorf("seed from %s backend: %w", b.Name(), err)
		}
		return s.AddAll(extra), nil
	default:
		return nil, fmt.Errorf("unknown seed %q", conf.Database.Seed)
	}
}

// editStore starts from what the backend already holds, so that successive
// add and remove commands accumulate. An empty backend falls back to the seed.
func editStore(ctx context.Context, conf *config.Config, b backend.Backend) (*mimestore.Store, error) {
	if conf.Database.Seed == config.SeedBackend {
		return seedStore(ctx, conf, b)
	}
	s, err := b.Load(ctx)
	metrics.ObserveBackend(b.Name(), "load", err)
	if err != nil {
		return nil, fmt.Errorf("load from %s backend: %w", b.Name(), err)
	}
	if s.Len() == 0 {
		return seedStore(ctx, conf, b)
	}
	return s.AddAll(conf.Database.ExtraMappings()), nil
}

func openRegistry(ctx context.Context, conf *config.Config, edit bool) (*registry.Registry, backend.Backend, error) {
	b, err := backend.New(conf)
	if err != nil {
		return nil, nil, err
	}
	seed := seedStore
	if edit {
		seed = editStore
	}
	s, err := seed(ctx, conf, b)
	if err != nil {
		b.Close()
		return nil, nil, err
	}

	opts := registry.Options{
		Backend:     b,
		AutoReindex: conf.Database.AutoReindex,
	}
	if conf.Cache.Enabled {
		opts.CacheTTL = config.MustDuration(conf.Cache.TTL)
		opts.CleanupInterval = config.MustDuration(conf.Cache.CleanupInterval)
	}
	return registry.New(s, opts), b, nil
}

func serve(ctx context.Context, conf *config.Config) error {
	logging.LogSystemInfo(log, conf.Build.Version)

	reg, b, err := openRegistry(ctx, conf, false)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	if conf.Metrics.Enabled {
		metrics.InitMetrics()
		metrics.UpdateSystemMetrics()
		go metrics.RunSystemMetrics(done, config.MustDuration(conf.Metrics.SystemInterval))
	}

	if conf.Server.PIDFilePath != "" {
		if err := logging.WritePIDFile(conf.Server.PIDFilePath, log); err != nil {
			b.Close()
			return err
		}
	}

	api := handlers.NewAPI(reg, handlers.Options{
		CORSOrigins:    conf.Server.CORSOrigins,
		MetricsEnabled: conf.Metrics.Enabled,
		MetricsPath:    conf.Metrics.Path,
		RequireJWT:     conf.Security.EnableJWT,
		JWTSecret:      conf.Security.JWTSecret,
	})

	addr := server.ListenAddr(conf.Server.BindIP, conf.Server.ListenAddress)
	srv := server.New(addr, api.Routes(),
		config.MustDuration(conf.Timeouts.Read),
		config.MustDuration(conf.Timeouts.Write),
		config.MustDuration(conf.Timeouts.Idle),
	)

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			close(done)
			if err := b.Close(); err != nil {
				log.Errorf("Failed to close %s backend: %v", b.Name(), err)
			}
			if conf.Server.PIDFilePath != "" {
				logging.RemovePIDFile(conf.Server.PIDFilePath, log)
			}
		})
	}
	stopped := server.SetupGracefulShutdown(srv, config.MustDuration(conf.Timeouts.Shutdown), nil, cleanup)

	server.PrintStartupBanner(conf.Build.Version, addr, reg.Lookup().NumTypes())
	if err := server.Start(srv); err != nil {
		cleanup()
		return err
	}
	<-stopped
	return nil
}

// lookupCmd resolves file names and extensions to a MIME type, and MIME types
// (anything containing a slash) to their extensions.
func lookupCmd(ctx context.Context, conf *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("lookup: at least one extension, file name or MIME type is required")
	}
	reg, b, err := openRegistry(ctx, conf, false)
	if err != nil {
		return err
	}
	defer b.Close()

	for _, name := range args {
		if strings.Contains(name, "/") {
			fmt.Fprintf(out, "%s\t%s\n", name, strings.Join(reg.ExtensionsByType(name), " "))
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", name, reg.ContentType(name))
	}
	return nil
}

func mutateCmd(ctx context.Context, conf *config.Config, op string, args []string, out io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("%s: expected <ext> <type>", op)
	}
	reg, b, err := openRegistry(ctx, conf, true)
	if err != nil {
		return err
	}
	defer b.Close()

	if op == "add" {
		err = reg.Add(args[0], args[1])
	} else {
		err = reg.Remove(args[0], args[1])
	}
	if err != nil {
		return err
	}
	if err := reg.Save(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s %s (saved to %s)\n", op, args[0], args[1], b.Name())
	return nil
}

func dumpCmd(ctx context.Context, conf *config.Config, out io.Writer) error {
	reg, b, err := openRegistry(ctx, conf, false)
	if err != nil {
		return err
	}
	defer b.Close()

	_, err = reg.Snapshot().WriteTo(out)
	return err
}

func tokenCmd(conf *config.Config, args []string, out io.Writer) error {
	if conf.Security.JWTSecret == "" {
		return errors.New("token: security.jwtsecret is not set")
	}
	subject := "mimedb"
	if len(args) > 0 {
		subject = args[0]
	}
	token, err := auth.GenerateToken(conf.Security.JWTSecret, conf.Security.JWTAlgorithm, subject,
		config.MustDuration(conf.Security.JWTExpiration))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}
