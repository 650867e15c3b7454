package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chatcut/chatcut/internal/cli"
	"github.com/chatcut/chatcut/internal/edit"
	"github.com/chatcut/chatcut/internal/session"
	"github.com/chatcut/chatcut/internal/timeline"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive editing session on a demo timeline",
	Long: `chat opens a session against an in-memory timeline with three video
clips and one audio clip, all selected. Type editing requests, "undo",
"redo", "clips" to inspect the timeline, or "exit".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := cli.NewPrompter(opts)
		if err != nil {
			return err
		}
		tl := timeline.NewDemo()
		s := session.New(p, tl)
		out := cmd.OutOrStdout()
		in := bufio.NewReader(cmd.InOrStdin())

		fmt.Fprintln(out, "ChatCut chat. Type an edit, \"undo\", \"clips\" or \"exit\".")
		for {
			line, err := cli.ReadLine(in, out, "> ")
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			if err != nil {
				return err
			}
			switch {
			case line == "":
				continue
			case cli.IsQuit(line):
				return nil
			case strings.EqualFold(line, "clips"):
				printClips(out, tl)
				continue
			}
			for _, m := range s.Submit(cmd.Context(), line) {
				if m.Role == session.RoleAssistant {
					fmt.Fprintln(out, cli.FormatMessage(m))
				}
			}
		}
	},
}

func printClips(w io.Writer, tl *timeline.Timeline) {
	for _, c := range tl.Clips() {
		fmt.Fprintf(w, "%s  %-14s %5.1fs-%5.1fs  %s\n", c.Ref, c.Name, c.Start, c.End, strings.Join(c.ComponentNames(), ", "))
		for _, comp := range c.ComponentNames() {
			for param, st := range c.Components[comp] {
				if len(st.Keyframes) > 0 {
					fmt.Fprintf(w, "      %s/%s keyframes %v\n", comp, param, st.Keyframes)
				} else if comp != edit.ComponentMotion || st.Value != 100 {
					fmt.Fprintf(w, "      %s/%s = %g\n", comp, param, st.Value)
				}
			}
		}
		for atStart, tr := range c.Transitions {
			edge := "end"
			if atStart {
				edge = "start"
			}
			fmt.Fprintf(w, "      transition at %s: %s (%.1fs)\n", edge, tr.Name, tr.Duration)
		}
	}
}
