package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/jpfa/chat-tui/chat"
	"github.com/jpfa/chat-tui/client"
	"github.com/jpfa/chat-tui/store"
)

const requestTimeout = 30 * time.Second

// confirmFunc asks a yes/no question. Tests replace it.
var confirmFunc = func(message string) (bool, error) {
	ok := false
	prompt := &survey.Confirm{Message: message}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return ok, nil
}

func newConversationsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv", "c"},
		Short:   "list, rename and delete conversations",
		Args:    cobra.NoArgs,
	}
	cmd.AddCommand(
		newListCmd(opts),
		newRenameCmd(opts),
		newDeleteCmd(opts),
	)
	return cmd
}

func newListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "list conversations",
		Long: `List conversations known to the server. The conversation the client
would reopen on the next start is marked with *.`,
		Example: `  $ jpfa conversations list
  $ jpfa conversations list --profile work`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			convs, err := newAPI(s).ListConversations(ctx)
			if err != nil {
				printError(cmd.ErrOrStderr(), "failed to list conversations: %v", err)
				return err
			}
			if len(convs) == 0 {
				printInfo(cmd.OutOrStdout(), "No conversations yet")
				return nil
			}
			writeConversations(cmd.OutOrStdout(), convs, lastSelection(s))
			return nil
		},
	}
}

func newRenameCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rename <id> <title>",
		Short:   "rename a conversation",
		Example: `  $ jpfa conversations rename 42 "Quarterly budget"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			title := args[1]
			if title == "" {
				return errors.New("title must not be empty")
			}
			s, err := loadSettings(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			if err := newAPI(s).RenameConversation(ctx, id, title); err != nil {
				printError(cmd.ErrOrStderr(), "failed to rename: %v", err)
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Renamed %s to %q", id, title)
			return nil
		},
	}
}

func newDeleteCmd(opts *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "delete a conversation",
		Long: `Delete a conversation on the server.

You are prompted to confirm unless --yes is given. If the deleted
conversation is the one the client would reopen, the client starts on a new
chat instead.`,
		Example: `  $ jpfa conversations delete 42
  $ jpfa conversations delete 42 --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := loadSettings(opts)
			if err != nil {
				return err
			}

			if !yes {
				ok, err := confirmFunc(fmt.Sprintf("Delete conversation %s?", id))
				if err != nil {
					return err
				}
				if !ok {
					printInfo(cmd.OutOrStdout(), "Deletion cancelled")
					return nil
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			if err := newAPI(s).DeleteConversation(ctx, id); err != nil {
				printError(cmd.ErrOrStderr(), "failed to delete: %v", err)
				return err
			}
			forgetSelection(s, id)
			printSuccess(cmd.OutOrStdout(), "Deleted conversation %s", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newAPI(s settings) *client.Client {
	api := client.New(s.cfg.Server)
	if s.cfg.Token != "" {
		api.SetToken(s.cfg.Token)
	}
	return api
}

func parseID(arg string) (chat.ID, error) {
	id := chat.ParseID(arg)
	if id.IsDraft() {
		return chat.Draft, fmt.Errorf("invalid conversation id %q", arg)
	}
	return id, nil
}

// lastSelection reads the persisted selection. The store is skipped when
// a running client holds its lock.
func lastSelection(s settings) chat.ID {
	st, err := store.Open(s.profileDir)
	if err != nil {
		return chat.Draft
	}
	defer st.Close()
	id, err := st.LastConversation()
	if err != nil {
		return chat.Draft
	}
	return id
}

// forgetSelection clears the persisted selection if it names id.
func forgetSelection(s settings, id chat.ID) {
	st, err := store.Open(s.profileDir)
	if err != nil {
		return
	}
	defer st.Close()
	if cur, err := st.LastConversation(); err == nil && cur == id {
		_ = st.ClearLastConversation()
	}
}

func writeConversations(w io.Writer, convs []chat.Summary, current chat.ID) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, boldColor.Sprint("  ID")+"\t"+boldColor.Sprint("TITLE"))
	for _, c := range convs {
		marker := " "
		if c.ID == current {
			marker = "*"
		}
		title := c.Title
		if title == "" {
			title = faintColor.Sprint("(untitled)")
		}
		fmt.Fprintf(tw, "%s %s\t%s\n", marker, c.ID, title)
	}
	_ = tw.Flush()
}
