// Command chatcut is the terminal client for the ChatCut backend.
package main

import (
	"os"

	"github.com/chatcut/chatcut/internal/cli"
	"github.com/chatcut/chatcut/internal/client"
	"github.com/chatcut/chatcut/internal/logging"
	"github.com/spf13/cobra"
)

var version = "dev"

var opts cli.Options

var rootCmd = &cobra.Command{
	Use:   "chatcut",
	Short: "Edit video with natural language",
	Long: `chatcut sends editing requests to the ChatCut backend and prints the
structured actions it returns. The chat command runs an interactive session
against an in-memory demo timeline, including undo.

Examples:
  chatcut ping
  chatcut health --probe
  chatcut prompt "zoom in by 120%"
  chatcut prompt --local --provider stub "add reverb and blur by 30"
  chatcut media "describe this clip" ./clip.mp4
  chatcut media --pick "track the runner"
  chatcut job 3f2c9a1e-...
  chatcut ask "how do I undo?"
  chatcut chat --local`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.InitLogging(opts)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.ServerURL, "server", logging.EnvOrDefault("CHATCUT_SERVER_URL", client.DefaultBaseURL), "Backend URL")
	pf.BoolVar(&opts.Local, "local", false, "Process prompts in-process instead of calling the backend")
	pf.StringVar(&opts.Provider, "provider", "", "Provider for --local (default $AI_PROVIDER)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(pingCmd, healthCmd, promptCmd, mediaCmd, jobCmd, askCmd, chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
