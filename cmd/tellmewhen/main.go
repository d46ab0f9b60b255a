package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"tellmewhen/internal/app"
	"tellmewhen/internal/config"
	"tellmewhen/internal/listener"
	logx "tellmewhen/pkg/logx"
)

const version = "0.1.0-next"

var (
	host          string
	port          int
	startDelay    string
	minSeparation string
	logLevel      string
	logFile       string
	logJSON       bool
	watch         bool
	commandRate   int
)

var rootCmd = &cobra.Command{
	Use:   "tellmewhen [flags] CONFIG...",
	Short: "Start the timing server",
	Long: `Start the timing server. Use tellmewhenc to send it commands:

  start NAME    (re)start all triggers of an event
  cancel NAME   stop an event
  cancel        stop every event
  quit          shut the server down

Each CONFIG is a JSON or YAML file describing the events to set up.`,
	Version:       version,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	d := config.DefaultOptions()
	f := rootCmd.Flags()
	f.StringVarP(&host, "host", "H", d.SocketHost, "hostname to listen for commands on")
	f.IntVarP(&port, "port", "p", d.SocketPort, "port to listen for commands on")
	f.StringVarP(&startDelay, "start-delay", "d", secondsString(d.StartDelay.Seconds()),
		"a `start' command indicates an event occurred this many seconds ago")
	f.StringVar(&minSeparation, "min-event-separation", secondsString(d.MinCmdSeparation.Seconds()),
		"minimum allowed number of seconds between triggering different events")
	f.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	f.StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	f.BoolVar(&logJSON, "log-json", false, "write JSON lines to stderr instead of the console format")
	f.BoolVar(&watch, "watch", true, "warn when config files change on disk")
	f.IntVar(&commandRate, "command-rate", listener.DefaultRatePerSec, "max commands accepted per second (negative disables the limit)")
}

func secondsString(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func options() (config.Options, error) {
	opts := config.DefaultOptions()
	opts.SocketHost = host
	opts.SocketPort = port

	var err error
	if opts.StartDelay, err = config.ParseSecondsField("--start-delay", startDelay); err != nil {
		return opts, err
	}
	if opts.MinCmdSeparation, err = config.ParseSecondsField("--min-event-separation", minSeparation); err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}

func run(cmd *cobra.Command, args []string) error {
	opts, err := options()
	if err != nil {
		return err
	}
	boot := logx.NewConsole(logLevel)
	defs, err := config.LoadFiles(args)
	if err != nil {
		return err
	}
	boot.Debug("events loaded", logx.Strs("files", args), logx.Int("events", len(defs)))

	logs, log := logx.New(logx.Config{
		Level:   logLevel,
		Console: true,
		JSON:    logJSON,
		File:    logx.FileConfig{Enabled: logFile != "", Path: logFile},
	})
	defer logs.Close()

	a, err := app.New(app.Config{
		Options:     opts,
		Events:      defs,
		Files:       args,
		Watch:       watch,
		CommandRate: commandRate,
	}, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	_, err = a.Run(ctx)
	return err
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", rootCmd.Name(), err)
		os.Exit(2)
	}
}
