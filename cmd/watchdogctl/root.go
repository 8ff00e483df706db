package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mbd888/watchdog/pkg/watchdog"
)

// NewRoot builds the watchdogctl command tree.
func NewRoot(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "watchdogctl",
		Short:         "watchdogctl: classify tokens and drive the mempool simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Version = version
	cmd.SetVersionTemplate("watchdogctl {{.Version}}\n")

	cmd.PersistentFlags().String("avs", getenvDefault("WATCHDOG_AVS_URL", "http://127.0.0.1:3001"), "AVS base URL")
	cmd.PersistentFlags().String("mempool", getenvDefault("WATCHDOG_MEMPOOL_URL", "http://127.0.0.1:4001"), "mempool simulator base URL")
	cmd.PersistentFlags().String("stream", getenvDefault("WATCHDOG_STREAM_URL", ""), "WebSocket stream URL (default: <mempool>/ws)")
	cmd.PersistentFlags().Bool("json", false, "Print JSON output")

	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newRugCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newKeygenCmd())

	return cmd
}

func getClient(cmd *cobra.Command) *watchdog.Client {
	avs, _ := cmd.Root().PersistentFlags().GetString("avs")
	mempool, _ := cmd.Root().PersistentFlags().GetString("mempool")
	stream, _ := cmd.Root().PersistentFlags().GetString("stream")
	c := watchdog.NewClient(avs, mempool)
	c.StreamURL = stream
	return c
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Root().PersistentFlags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
