package main

import (
	"flag"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/mastercactapus/alevel/autolevel"
	"github.com/mastercactapus/alevel/logger"
)

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	Color      bool   `toml:"color"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"`
}

func (c LogConfig) logger() logger.Config {
	return logger.Config{
		Level:      c.Level,
		File:       c.File,
		Color:      c.Color,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
	}
}

type AutolevelConfig struct {
	Step   float64 `toml:"step"`
	Height float64 `toml:"height"`
	Feed   float64 `toml:"feed"`
}

func (c AutolevelConfig) options() autolevel.Options {
	opts := autolevel.DefaultOptions()
	if c.Step > 0 {
		opts.Step = c.Step
	}
	if c.Height > 0 {
		opts.TravelHeight = c.Height
	}
	if c.Feed > 0 {
		opts.Feed = c.Feed
	}
	return opts
}

type Config struct {
	Port       string `toml:"port"`
	Baud       int    `toml:"baud"`
	SPJS       string `toml:"spjs"`
	Controller string `toml:"controller"`
	Addr       string `toml:"addr"`
	Dir        string `toml:"dir"`
	OutDir     string `toml:"out_dir"`
	ProbeFile  string `toml:"probe_file"`

	Log       LogConfig       `toml:"log"`
	Autolevel AutolevelConfig `toml:"autolevel"`

	ListPorts bool `toml:"-"`

	// Unknown holds file keys that matched no field.
	Unknown []string `toml:"-"`
}

func defaultConfig() Config {
	opts := autolevel.DefaultOptions()
	return Config{
		Port:       "/dev/ttyUSB0",
		Baud:       115200,
		Controller: "grbl",
		Addr:       ":9091",
		Dir:        "./data",
		ProbeFile:  autolevel.DefaultProbeFile,
		Log: LogConfig{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
		Autolevel: AutolevelConfig{
			Step:   opts.Step,
			Height: opts.TravelHeight,
			Feed:   opts.Feed,
		},
	}
}

// parseConfig reads flags and the optional TOML file named by -config.
// Flags given on the command line override the file.
func parseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()

	configFile := fs.String("config", "", "TOML config file.")
	fs.StringVar(&cfg.Port, "port", cfg.Port, "Port path (or name if using SPJS).")
	fs.IntVar(&cfg.Baud, "baud", cfg.Baud, "Serial baud rate.")
	fs.StringVar(&cfg.SPJS, "spjs", cfg.SPJS, "Websocket URL of the SPJS server to use, e.g. ws://cnc-bridge:8989/ws.")
	fs.StringVar(&cfg.Controller, "controller", cfg.Controller, "Name of the controller to use.")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Address to bind the server to.")
	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "Data directory to use.")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Directory to write leveled programs to.")
	fs.StringVar(&cfg.ProbeFile, "probe-file", cfg.ProbeFile, "Probe recording file, relative to the data directory.")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level (debug, info, warn, error).")
	fs.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "Also log to this file, rotated by size.")
	fs.Float64Var(&cfg.Autolevel.Step, "step", cfg.Autolevel.Step, "Default probe spacing in mm.")
	fs.Float64Var(&cfg.Autolevel.Height, "height", cfg.Autolevel.Height, "Default travel height between probes in mm.")
	fs.Float64Var(&cfg.Autolevel.Feed, "feed", cfg.Autolevel.Feed, "Default probing feed rate.")
	fs.BoolVar(&cfg.ListPorts, "list-ports", false, "List serial ports and exit.")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if *configFile == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(*configFile, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	for _, key := range md.Undecoded() {
		cfg.Unknown = append(cfg.Unknown, key.String())
	}

	// parse again so explicit flags win over the file
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}
