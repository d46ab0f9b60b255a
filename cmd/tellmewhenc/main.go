package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tellmewhen/internal/config"
	"tellmewhen/internal/listener"
)

var (
	host    string
	port    int
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "tellmewhenc [flags] COMMAND...",
	Short: "Send a command to a running tellmewhen server",
	Long: `Send one command to a running tellmewhen server. Arguments are joined
with single spaces, so these are equivalent:

  tellmewhenc start stretch
  tellmewhenc "start stretch"`,
	Version:       "0.1.0-next",
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		return listener.Send(ctx, addr, strings.Join(args, " "))
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&host, "host", "H", config.DefaultSocketHost, "hostname the server listens on")
	f.IntVarP(&port, "port", "p", config.DefaultSocketPort, "port the server listens on")
	f.DurationVar(&timeout, "timeout", 5*time.Second, "give up after this long")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", rootCmd.Name(), err)
		os.Exit(1)
	}
}
