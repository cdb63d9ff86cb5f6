package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/yieldchat/internal/app"
	"github.com/ashureev/yieldchat/internal/conversation"
	"github.com/ashureev/yieldchat/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newChatCommand(e *env) *cobra.Command {
	var (
		sessionID string
		record    bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Answer the yield questions in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			model, err := app.LoadModel(e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer model.Close()

			sessions, closeSessions, err := app.SessionStore(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeSessions() }()

			var recorder conversation.Recorder
			if record {
				repo, err := store.NewSQLite(e.cfg.DBPath)
				if err != nil {
					return err
				}
				defer func() { _ = repo.Close() }()
				recorder = repo
			}

			controller := conversation.NewController(app.NewEngine(e.cfg, model, sessions, e.logger), recorder, nil, e.logger)
			return runChat(ctx, e, controller, sessionID)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (default: random)")
	cmd.Flags().BoolVar(&record, "record", false, "Store the completed prediction in the history database")
	return cmd
}

// runChat opens the conversation, or picks up an unfinished one, and feeds
// it one line per turn until the prediction is reported or input ends.
func runChat(ctx context.Context, e *env, c *conversation.Controller, sessionID string) error {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	turn := conversation.Turn{UserID: "cli", SessionID: sessionID, Channel: "cli", Message: "start"}

	reply, ok := c.Resume(ctx, turn.UserID, sessionID)
	if ok {
		fmt.Fprintf(e.out, "Resuming session %s.\n", sessionID)
	} else {
		reply = c.Handle(ctx, turn)
	}
	fmt.Fprintln(e.out, reply.Text)

	scanner := bufio.NewScanner(e.in)
	for {
		fmt.Fprint(e.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(e.out)
			return scanner.Err()
		}
		turn.Message = strings.TrimSpace(scanner.Text())
		if turn.Message == "" {
			continue
		}
		reply = c.Handle(ctx, turn)
		fmt.Fprintln(e.out, reply.Text)
		if reply.Done {
			if reply.Error != "" {
				return fmt.Errorf("conversation ended: %s", reply.Error)
			}
			return nil
		}
	}
}
