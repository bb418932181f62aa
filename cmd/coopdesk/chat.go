package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hupe1980/coopdesk"
)

func newChatCmd(flags *globalFlags) *cobra.Command {
	var (
		sessionID string
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Reads one message per line from stdin. Type /reset to start over and
/exit (or EOF) to quit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			desk, err := flags.openDesk(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer desk.Close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			return repl(cmd.Context(), desk, sessionID, cmd.InOrStdin(), cmd.OutOrStdout(), verbose)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (default: random)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the visited nodes of every turn")

	return cmd
}

func repl(ctx context.Context, desk *coopdesk.Desk, sessionID string, in io.Reader, out io.Writer, verbose bool) error {
	fmt.Fprintf(out, "Sesión %s. Escribe /exit para salir.\n", sessionID)

	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/exit", "/salir":
			return nil
		case "/reset":
			if err := desk.Runner.Reset(ctx, sessionID); err != nil {
				return err
			}

			fmt.Fprintln(out, "Conversación reiniciada.")

			continue
		}

		reply, err := desk.Chat(ctx, sessionID, line)
		if err != nil {
			return err
		}

		if verbose {
			fmt.Fprintf(out, "[%s | llamadas al modelo: %d]\n", strings.Join(reply.Path, " > "), reply.ModelCalls)
		}

		fmt.Fprintln(out, reply.Text)
	}
}
