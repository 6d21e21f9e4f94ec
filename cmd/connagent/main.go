package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"connman-agent/internal/agent"
	"connman-agent/internal/bus"
	"connman-agent/internal/config"
	"connman-agent/internal/counter"
	"connman-agent/internal/inputlog"
	"connman-agent/internal/lineprotocol"
	"connman-agent/internal/prompt"

	"github.com/fatih/color"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type flags struct {
	ConfigPath      string
	LogInputRequest bool
	InputLogPath    string
	Agent           bool
	VPN             bool
	Counter         bool
	Register        bool
	Accuracy        uint32
	Period          uint32
	LineProtocol    bool
	Host            string
	Debug           bool
}

var opts flags

var rootCmd = &cobra.Command{
	Use:   "connagent",
	Short: "Answer connman agent and counter requests on the system bus",
	RunE:  runAgent,
}

func init() {
	bindFlags(rootCmd.Flags(), &opts)
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

func bindFlags(fs *pflag.FlagSet, o *flags) {
	hostname, _ := os.Hostname()
	defaults := config.Default()

	fs.StringVarP(&o.ConfigPath, "config", "c", "", "YAML config file")
	fs.BoolVarP(&o.LogInputRequest, "log-input-request", "l", false, "Append decoded input requests to the input log")
	fs.StringVar(&o.InputLogPath, "input-log", defaults.InputLogPath, "Input request log file")
	fs.BoolVar(&o.Agent, "agent", defaults.Agent.Enabled, "Serve the service agent")
	fs.BoolVar(&o.VPN, "vpn", defaults.VPN.Enabled, "Serve the VPN agent")
	fs.BoolVar(&o.Counter, "counter", defaults.Counter.Enabled, "Serve the usage counter")
	fs.BoolVar(&o.Register, "register", defaults.Register, "Register objects with the daemons")
	fs.Uint32Var(&o.Accuracy, "accuracy", defaults.Counter.Accuracy, "Counter accuracy in KB")
	fs.Uint32Var(&o.Period, "period", defaults.Counter.Period, "Counter period in seconds")
	fs.BoolVarP(&o.LineProtocol, "line-protocol", "p", false, "Print usage updates as InfluxDB line protocol")
	fs.StringVarP(&o.Host, "host", "s", hostname, "Host tag for line protocol output")
	fs.BoolVar(&o.Debug, "debug", false, "Debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags(), &opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(10)
	}

	logger := newLogger(opts.Debug)

	conn, err := bus.ConnectSystem()
	if err != nil {
		return err
	}
	srv := bus.NewServer(conn, bus.Config{
		Register: cfg.Register,
		Accuracy: cfg.Counter.Accuracy,
		Period:   cfg.Counter.Period,
	}, logger)
	defer srv.Close()

	prompter := prompt.NewTerminal(os.Stdin, os.Stdout, logger)
	inputLog := inputlog.New(cfg.LogInputRequest, cfg.InputLogPath)

	if cfg.Agent.Enabled {
		a := agent.NewAgent(prompter, inputLog, logger)
		if err := srv.ExportAgent(dbus.ObjectPath(cfg.Agent.Path), a); err != nil {
			return err
		}
	}
	if cfg.VPN.Enabled {
		v := agent.NewVPNAgent(prompter, inputLog, logger)
		if err := srv.ExportVPNAgent(dbus.ObjectPath(cfg.VPN.Path), v); err != nil {
			return err
		}
	}
	if cfg.Counter.Enabled {
		c := counter.NewCounter(printUsage, logger)
		if err := srv.ExportCounter(dbus.ObjectPath(cfg.Counter.Path), c); err != nil {
			return err
		}
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("connagent running", "version", version)
	<-sigCh
	logger.Info("shutdown signal received")
	return nil
}

// loadConfig reads the config file and applies the flags that were set
// explicitly on the command line.
func loadConfig(f *pflag.FlagSet, o *flags) (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return cfg, err
	}

	if f.Changed("log-input-request") {
		cfg.LogInputRequest = o.LogInputRequest
	}
	if f.Changed("input-log") {
		cfg.InputLogPath = o.InputLogPath
	}
	if f.Changed("agent") {
		cfg.Agent.Enabled = o.Agent
	}
	if f.Changed("vpn") {
		cfg.VPN.Enabled = o.VPN
	}
	if f.Changed("counter") {
		cfg.Counter.Enabled = o.Counter
	}
	if f.Changed("register") {
		cfg.Register = o.Register
	}
	if f.Changed("accuracy") {
		cfg.Counter.Accuracy = o.Accuracy
	}
	if f.Changed("period") {
		cfg.Counter.Period = o.Period
	}

	return cfg, cfg.Validate()
}

func printUsage(u counter.Update) {
	if opts.LineProtocol {
		if output := lineprotocol.Format(u, opts.Host); output != "" {
			fmt.Println(output)
		}
		return
	}

	title := color.New(color.FgGreen, color.Bold)
	title.Printf("\nUsage %s (home)\n", u.Service)
	fmt.Println(u.HomeLabel)
	title.Printf("\nUsage %s (roaming)\n", u.Service)
	fmt.Println(u.RoamingLabel)
}

// newLogger returns a text logger on a terminal and a JSON logger otherwise.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
