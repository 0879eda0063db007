package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/fleet"
	"github.com/lex00/wetwire-fleet-go/internal/config"
	"github.com/lex00/wetwire-fleet-go/internal/logging"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	verbose    bool
}

func (o *globalOptions) loadConfig() (fleet.Config, error) {
	return config.Load(o.configPath)
}

// buildTemplate loads the configuration and builds the fleet template from it.
func (o *globalOptions) buildTemplate() (fleet.Config, *wetwire.Template, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return cfg, nil, err
	}
	tmpl, err := fleet.Build(cfg)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, tmpl, nil
}

// logger writes text logs to stderr, at debug level with --verbose.
func (o *globalOptions) logger() *log.Logger {
	level := "info"
	if o.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, logging.FormatText, os.Stderr)
	if err != nil {
		return logging.Discard()
	}
	return logger
}
