package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ripplechat/ripple/internal/config"
	"github.com/ripplechat/ripple/internal/daemon"
	"go.uber.org/fx"
)

func main() {
	configFlag := flag.String("config", "", "path to ripple.toml (default: $HOME/.ripple/ripple.toml)")
	flag.Parse()

	cfg, err := resolveConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{Config: cfg}),
	)

	app.Run()
}

func resolveConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %w", err)
	}
	dir := filepath.Join(home, ".ripple")
	defaultPath := filepath.Join(dir, "ripple.toml")

	cfg, err := config.Load(defaultPath)
	if os.IsNotExist(err) {
		// First run: write defaults so the operator has a file to edit.
		cfg = config.Default(dir)
		if err := config.Save(defaultPath, cfg); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		return cfg, nil
	}
	return cfg, err
}
