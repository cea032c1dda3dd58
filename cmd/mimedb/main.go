// mimedb serves and edits a bidirectional extension and MIME type database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

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

var version = "1.0.0"

var log = logrus.New()

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: mimedb [flags] <command> [args]

Commands:
  serve                  run the HTTP API (default)
  lookup <name>...       print the MIME type of each extension or file name
  add <ext> <type>       add a mapping and save it to the backend
  remove <ext> <type>    remove a mapping and save the result to the backend
  dump                   write the database in mime.types format to stdout
  token [subject]        print a signed API token

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	var configFile string
	var genConfig bool
	var genConfigPath string
	var showVersion bool

	flag.StringVar(&configFile, "config", "./config.toml", "Path to configuration file \"config.toml\".")
	flag.BoolVar(&genConfig, "genconfig", false, "Print minimal configuration example and exit.")
	flag.StringVar(&genConfigPath, "genconfig-path", "", "Write minimal configuration to the given file and exit.")
	flag.BoolVar(&showVersion, "version", false, "Show version information and exit.")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("mimedb v%s\n", version)
		os.Exit(0)
	}
	if genConfig {
		fmt.Println(config.GenerateMinimalConfig())
		os.Exit(0)
	}
	if genConfigPath != "" {
		if err := config.CreateMinimalConfig(genConfigPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration written to %s\n", genConfigPath)
		os.Exit(0)
	}

	setLoggers(log)

	conf, err := config.LoadConfig(configFile)
	if err != nil {
		if configFile != "./config.toml" {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		log.Warnf("%v; using built-in defaults", err)
		conf = config.DefaultConfig()
	}
	if err := config.ValidateConfig(conf); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	logging.SetupLogging(conf, log)

	cmd, args := "serve", flag.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	ctx := context.Background()
	if err := run(ctx, conf, cmd, args); err != nil {
		log.Fatal(err)
	}
}

func setLoggers(l *logrus.Logger) {
	auth.SetLogger(l)
	backend.SetLogger(l)
	config.SetLogger(l)
	handlers.SetLogger(l)
	metrics.SetLogger(l)
	mimestore.SetLogger(l)
	registry.SetLogger(l)
	server.SetLogger(l)
}

func run(ctx context.Context, conf *config.Config, cmd string, args []string) error {
	switch cmd {
	case "serve":
		return serve(ctx, conf)
	case "lookup":
		return lookupCmd(ctx, conf, args, os.Stdout)
	case "add", "remove":
		return mutateCmd(ctx, conf, cmd, args, os.Stdout)
	case "dump":
		return dumpCmd(ctx, conf, os.Stdout)
	case "token":
		return tokenCmd(conf, args, os.Stdout)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}
