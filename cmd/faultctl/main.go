// cmd/faultctl/main.go
package main

import (
	"io"
	"os"
	"path"

	"github.com/hashicorp/go-hclog"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/tamzrod/faultcapture/internal/config"
)

type cliOptions struct {
	Debug      bool   `long:"debug" description:"enable debug output"`
	ConfigPath string `short:"c" long:"config" description:"device configuration file (YAML)"`

	Show     showCmd     `command:"show" description:"Print the fault record held by the configured store"`
	Dump     dumpCmd     `command:"dump" description:"Scan a raw flash image for a fault record and print it"`
	Pull     pullCmd     `command:"pull" description:"Copy the raw fault region to a file"`
	Clear    clearCmd    `command:"clear" description:"Return the fault region to its freshly programmed state"`
	Export   exportCmd   `command:"export" description:"Serve the fault record as Prometheus metrics"`
	Simulate simulateCmd `command:"simulate" description:"Run a hosted device through repeated fault/reset cycles"`
}

// ---- per-command plumbing ----

type cmdLogger interface {
	setLog(hclog.Logger)
}

type logCmd struct {
	log hclog.Logger
}

func (c *logCmd) setLog(log hclog.Logger) {
	c.log = log
}

type cmdOutput interface {
	setOutput(io.Writer)
}

type outCmd struct {
	out io.Writer
}

func (c *outCmd) setOutput(w io.Writer) {
	c.out = w
}

type cmdConfigSetter interface {
	setConfig(*config.Config)
}

type cfgCmd struct {
	cfg *config.Config
}

func (c *cfgCmd) setConfig(cfg *config.Config) {
	c.cfg = cfg
}

// loadConfig reads, normalizes and validates the device configuration.
func loadConfig(cfgPath string) (*config.Config, error) {
	if cfgPath == "" {
		return nil, errors.New("a device configuration is required (--config)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	config.Normalize(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func exitWithError(log hclog.Logger, err error) {
	cmdName := path.Base(os.Args[0])
	log.Error(cmdName + ": " + err.Error())
	os.Exit(1)
}

func parseOpts(args []string, opts *cliOptions, out io.Writer, log hclog.Logger) error {
	p := flags.NewParser(opts, flags.Default)
	p.Name = "faultctl"
	p.ShortDescription = "Inspect and exercise crash-safe fault records"
	p.Usage = "[OPTIONS] COMMAND"
	p.Options ^= flags.PrintErrors // Don't allow the library to print errors
	p.CommandHandler = func(cmd flags.Commander, args []string) error {
		if cmd == nil {
			return nil
		}

		if opts.Debug {
			log.SetLevel(hclog.Debug)
			log.Debug("debug output enabled")
		}

		if logCmd, ok := cmd.(cmdLogger); ok {
			logCmd.setLog(log)
		}
		if outCmd, ok := cmd.(cmdOutput); ok {
			outCmd.setOutput(out)
		}

		if cfgCmd, ok := cmd.(cmdConfigSetter); ok {
			cfg, err := loadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			log.Debug("config loaded", "path", opts.ConfigPath, "device", cfg.Device.ID, "backend", cfg.Store.Backend)
			cfgCmd.setConfig(cfg)
		}

		return cmd.Execute(args)
	}

	_, err := p.ParseArgs(args)
	return err
}

func main() {
	var opts cliOptions
	log := hclog.New(&hclog.LoggerOptions{
		Name:   "faultctl",
		Level:  hclog.Info,
		Output: os.Stderr,
	})

	if err := parseOpts(os.Args[1:], &opts, os.Stdout, log); err != nil {
		var fe *flags.Error
		if errors.As(err, &fe) && fe.Type == flags.ErrHelp {
			os.Stdout.WriteString(fe.Message + "\n")
			return
		}
		exitWithError(log, err)
	}
}
