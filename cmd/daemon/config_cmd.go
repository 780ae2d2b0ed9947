// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/relay247/internal/config"
	"gopkg.in/yaml.v3"
)

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	case "init":
		return runConfigInit(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  relay247 config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  relay247 config dump [--file|-f config.yaml] [--format=yaml|json]")
	fmt.Fprintln(w, "  relay247 config init --file|-f config.yaml [--force]")
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("relay247 config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to configuration file")
	fs.StringVar(&file, "f", "", "path to configuration file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := resolveConfigPath(file)
	if configPath == "" {
		fmt.Fprintf(stderr, "Error: --file is required (no $%sCONFIG set)\n", config.EnvPrefix)
		return 2
	}

	if _, err := config.NewLoader(configPath, version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}

	fmt.Fprintf(stdout, "%s is valid\n", configPath)
	return 0
}

// runConfigDump prints the effective configuration (defaults, file, env)
// with secrets redacted.
func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("relay247 config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file, format string
	fs.StringVar(&file, "file", "", "path to configuration file")
	fs.StringVar(&file, "f", "", "path to configuration file (shorthand)")
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.NewLoader(resolveConfigPath(file), version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}
	redactSecrets(&cfg)
	out := config.ToFileConfig(cfg)

	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(stderr, "Error encoding YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(stderr, "Error encoding JSON: %v\n", err)
			return 1
		}
	default:
		fmt.Fprintf(stderr, "Error: unknown format %q\n", format)
		return 2
	}
	return 0
}

// runConfigInit writes the built-in defaults as a starting config file.
func runConfigInit(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("relay247 config init", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	var force bool
	fs.StringVar(&file, "file", "", "path of the configuration file to create")
	fs.StringVar(&file, "f", "", "path of the configuration file to create (shorthand)")
	fs.BoolVar(&force, "force", false, "overwrite an existing file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	path := strings.TrimSpace(file)
	if path == "" {
		fmt.Fprintln(stderr, "Error: --file is required")
		return 2
	}
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(stderr, "Error: %s already exists (use --force to overwrite)\n", path)
		return 1
	}

	if err := config.NewManager(path).Save(config.Defaults()); err != nil {
		fmt.Fprintf(stderr, "Error writing %s: %v\n", path, err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return 0
}

func redactSecrets(cfg *config.AppConfig) {
	if cfg == nil {
		return
	}
	if cfg.Ingest.Token != "" {
		cfg.Ingest.Token = "***"
	}
	if cfg.API.Token != "" {
		cfg.API.Token = "***"
	}
	if cfg.Store.RedisPassword != "" {
		cfg.Store.RedisPassword = "***"
	}
	if cfg.Proxy != "" {
		cfg.Proxy = maskURL(cfg.Proxy)
	}
}
