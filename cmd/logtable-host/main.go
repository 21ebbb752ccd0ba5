// Command logtable-host runs the web host whose logs land in the legacy log
// table.
//
// Startup order matters: configuration is read first, a console-only
// bootstrap logger covers the window before connection strings are known,
// secrets and runtime settings are layered over the configuration, and only
// then is the real pipeline built with the database sink. Every exit path
// flushes the loggers.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Combine-Capital/logtable/pkg/config"
	"github.com/Combine-Capital/logtable/pkg/database"
	"github.com/Combine-Capital/logtable/pkg/logging"
	"github.com/Combine-Capital/logtable/pkg/metrics"
	"github.com/Combine-Capital/logtable/pkg/pipeline"
	"github.com/Combine-Capital/logtable/pkg/runtimesettings"
	"github.com/Combine-Capital/logtable/pkg/secrets"
	"github.com/Combine-Capital/logtable/pkg/service"
)

// secretEnvPrefix prefixes the variables read by the env secrets source.
const secretEnvPrefix = "LOGTABLE_SECRET_"

func main() {
	os.Exit(run(os.Args[1:], nil, os.Stderr))
}

// run starts the host and returns the process exit code. A non-nil console
// receives the console sinks' output instead of log:output.
func run(args []string, console, stderr io.Writer) int {
	flags := flag.NewFlagSet("logtable-host", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configDir := flags.String("config", ".", "directory holding appsettings.json")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	var opts []pipeline.Option
	if console != nil {
		opts = append(opts, pipeline.WithConsole(console))
	}

	ctx := context.Background()

	loader := config.NewLoader(*configDir)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	boot := pipeline.Bootstrap(cfg.Log, opts...)
	defer boot.Close(context.WithoutCancel(ctx))

	cfg, p, err := start(ctx, loader, cfg, boot, opts...)
	if err != nil {
		boot.Fatal(err, "The app had an error and has to shutdown: {Error}", err.Error())
		return 1
	}
	defer p.Close(context.WithoutCancel(ctx))

	log := p.Logger.ForSource("host")
	httpSvc := service.NewHTTPService("http", service.Addr(cfg.Server.HTTPPort),
		newHandler(cfg, p, log), service.FromServerConfig(cfg.Server)...)

	log.Information("Starting {Service} {Version} in {Environment}",
		cfg.Service.Name, cfg.Service.Version, cfg.Service.Env)

	if err := service.Run(ctx, log, cfg.Server.ShutdownTimeout, httpSvc); err != nil {
		log.Fatal(err, "The app had an error and has to shutdown: {Error}", err.Error())
		return 1
	}
	return 0
}

// start layers secrets and runtime settings over the configuration and
// builds the logging pipeline from the result. The returned configuration
// includes the layered values.
func start(ctx context.Context, loader *config.Loader, cfg *config.Config, log *logging.Logger, opts ...pipeline.Option) (*config.Config, *pipeline.Pipeline, error) {
	log.Information("Begin - Loading runtime configuration into the application")
	values, err := secrets.Read(ctx, secretsSource(cfg.Secrets), nil, log)
	if err != nil {
		return nil, nil, err
	}

	src, release, err := settingsSource(ctx, cfg, values)
	if err != nil {
		return nil, nil, err
	}
	values, err = runtimesettings.Update(ctx, src, values, log)
	release()
	if err != nil {
		return nil, nil, err
	}
	log.Information("End - Loading runtime configuration into the application")

	cfg, err = loader.WithOverrides(values).Load()
	if err != nil {
		return nil, nil, err
	}

	if cfg.Metrics.Enabled {
		if err := metrics.Init(cfg.Metrics); err != nil {
			return nil, nil, err
		}
	}

	p, err := pipeline.Build(ctx, cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, p, nil
}

func secretsSource(cfg config.SecretsConfig) secrets.Source {
	if cfg.Source == "env" {
		return secrets.Env(secretEnvPrefix)
	}
	return secrets.Static("")
}

// settingsSource returns the configured runtime settings source and a
// function releasing what it holds.
func settingsSource(ctx context.Context, cfg *config.Config, values secrets.Values) (runtimesettings.Source, func(), error) {
	if cfg.RuntimeSettings.Source != runtimesettings.SourceDatabase {
		return runtimesettings.Passthrough{}, func() {}, nil
	}

	name := cfg.RuntimeSettings.ConnectionString
	conn, ok := values[config.ConnectionStringKey(name)]
	if !ok {
		var err error
		if conn, err = cfg.ConnectionString(name); err != nil {
			return nil, nil, err
		}
	}

	pool, err := database.NewPool(ctx, conn, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return runtimesettings.NewDatabase(pool, cfg.RuntimeSettings.Table), pool.Close, nil
}
