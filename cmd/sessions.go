package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cropsage/cropsage/internal/app"
	"github.com/cropsage/cropsage/internal/config"
	"github.com/cropsage/cropsage/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored advisory sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			infos, err := a.Store.List(ctx)
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}
			if len(infos) == 0 {
				fmt.Println("No stored sessions.")
				return nil
			}
			for _, info := range infos {
				fmt.Printf("%-40s turns=%-4d updated=%s\n",
					info.ChatID, info.Turns, info.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			unlock := a.Locker.Lock(args[0])
			defer unlock()
			if err := a.Store.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("deleting session: %w", err)
			}
			if current, err := session.LoadCurrentChatID(ctx); err == nil && current == args[0] {
				if err := session.ClearCurrentChatID(ctx); err != nil {
					a.Logger.Warn("clearing current session pointer", "error", err)
				}
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		})
	},
}

var sessionsResetCmd = &cobra.Command{
	Use:   "reset <session-id>",
	Short: "Clear a session's accumulated context, keeping its ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			if err := resetSession(ctx, a, args[0]); err != nil {
				return err
			}
			fmt.Printf("Reset %s\n", args[0])
			return nil
		})
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsResetCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// withApp builds the application, runs fn, and tears it down.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()
	return fn(ctx, a)
}
