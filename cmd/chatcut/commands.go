package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/ai"
	"github.com/chatcut/chatcut/internal/cli"
	"github.com/chatcut/chatcut/internal/client"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	jsonFlag  bool
	probeFlag bool
	pickFlag  bool
)

func init() {
	promptCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the raw action result")
	mediaCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the raw action result")
	mediaCmd.Flags().BoolVar(&pickFlag, "pick", false, "Choose media files in a native dialog")
	healthCmd.Flags().BoolVar(&probeFlag, "probe", false, "Ask the backend to contact its provider")
}

var pingCmd = &cobra.Command{
	Use:   "ping [message]",
	Short: "Check that the backend is reachable",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg := "ping"
		if len(args) == 1 {
			msg = args[0]
		}
		resp, err := client.New(opts.ServerURL).Ping(cmd.Context(), msg)
		if err != nil {
			return fmt.Errorf("backend at %s is not reachable: %w", opts.ServerURL, err)
		}
		return cli.WriteJSON(cmd.OutOrStdout(), resp)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the backend's provider status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := client.New(opts.ServerURL).Health(cmd.Context(), probeFlag)
		if err != nil {
			return err
		}
		return cli.WriteJSON(cmd.OutOrStdout(), resp)
	},
}

var promptCmd = &cobra.Command{
	Use:   "prompt <request...>",
	Short: "Turn an editing request into actions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := cli.NewPrompter(opts)
		if err != nil {
			return err
		}
		res := p.ProcessPrompt(cmd.Context(), strings.Join(args, " "), nil)
		return printResult(cmd, res)
	},
}

var mediaCmd = &cobra.Command{
	Use:   "media <request> [files...]",
	Short: "Send a request together with local media files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := args[1:]
		if pickFlag {
			picked, err := pickMedia()
			if err != nil {
				return err
			}
			paths = append(paths, picked...)
		}
		if len(paths) == 0 {
			return errors.New("no media files given; pass paths or use --pick")
		}
		paths, err := cli.ResolveMediaPaths(paths)
		if err != nil {
			return err
		}
		for _, p := range paths {
			if !cli.FileExists(p) {
				log.Warn().Str("path", p).Msg("File does not exist locally; the backend may still see it")
			}
		}

		var res action.Result
		if opts.Local {
			svc, err := cli.LocalService(opts)
			if err != nil {
				return err
			}
			res = svc.ProcessMedia(cmd.Context(), args[0], paths)
		} else {
			res = client.New(opts.ServerURL).ProcessMedia(cmd.Context(), args[0], paths)
		}
		return printResult(cmd, res)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask how to do something in ChatCut",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history := []ai.Message{{Role: ai.RoleUser, Content: strings.Join(args, " ")}}
		var msg, code string
		if opts.Local {
			svc, err := cli.LocalService(opts)
			if err != nil {
				return err
			}
			ans := svc.AskQuestion(cmd.Context(), history)
			msg, code = ans.Message, ans.Error
		} else {
			ans, err := client.New(opts.ServerURL).AskQuestion(cmd.Context(), history)
			if err != nil {
				return err
			}
			msg, code = ans.Message, ans.Error
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		if code != "" {
			return fmt.Errorf("answer failed: %s", code)
		}
		return nil
	},
}

var jobCmd = &cobra.Command{
	Use:   "job <id>",
	Short: "Show the stored outcome of a media request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := client.New(opts.ServerURL).Job(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return cli.WriteJSON(cmd.OutOrStdout(), job)
	},
}

func printResult(cmd *cobra.Command, res action.Result) error {
	if jsonFlag {
		if err := cli.WriteJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), cli.FormatResult(res))
	}
	if code := cli.ExitCode(res.Error); code != 0 {
		os.Exit(code)
	}
	return nil
}

func pickMedia() ([]string, error) {
	selected, err := zenity.SelectFileMultiple(
		zenity.Title("Select media files"),
		zenity.FileFilters{
			{
				Name: "Media files",
				Patterns: []string{
					"*.mp4", "*.mov", "*.avi", "*.webm", "*.mkv",
					"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp",
					"*.wav", "*.mp3", "*.aac", "*.m4a",
				},
			},
		},
	)
	if errors.Is(err, zenity.ErrCanceled) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file picker failed: %w", err)
	}
	return selected, nil
}
