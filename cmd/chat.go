package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cropsage/cropsage/internal/app"
	"github.com/cropsage/cropsage/internal/config"
	"github.com/cropsage/cropsage/internal/session"
)

var (
	chatNew       bool
	chatSessionID string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive advisory chat",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatNew, "new", false, "start a new session instead of resuming the current one")
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "chat with a specific session ID")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	chatID, err := resumeOrCreateSession(ctx, chatSessionID, chatNew)
	if err != nil {
		return err
	}

	fmt.Printf("CropSage %s\n", AppVersion)
	fmt.Printf("Session: %s\n", chatID)
	fmt.Println("Type your question. /reset starts over, /quit exits.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye.")
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch input {
		case "/quit", "/exit":
			fmt.Println("Goodbye.")
			return nil
		case "/reset":
			if err := resetSession(ctx, a, chatID); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Println("Session cleared. Tell me about your crop.")
			continue
		}

		reply, err := runOneTurn(ctx, a, chatID, input)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nGoodbye.")
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Println(reply)
		fmt.Println()
	}
}

// resumeOrCreateSession returns the chat ID to use: an explicitly requested
// one, otherwise the one recorded in ~/.cropsage/current_session unless
// startNew is set or none exists.
func resumeOrCreateSession(ctx context.Context, requested string, startNew bool) (string, error) {
	if requested != "" {
		if err := session.ValidateChatID(requested); err != nil {
			return "", err
		}
		if err := session.SaveCurrentChatID(ctx, requested); err != nil {
			return "", fmt.Errorf("saving current session: %w", err)
		}
		return requested, nil
	}
	if !startNew {
		chatID, err := session.LoadCurrentChatID(ctx)
		if err != nil {
			return "", fmt.Errorf("loading current session: %w", err)
		}
		if chatID != "" {
			return chatID, nil
		}
	}

	chatID := uuid.NewString()
	if err := session.SaveCurrentChatID(ctx, chatID); err != nil {
		return "", fmt.Errorf("saving current session: %w", err)
	}
	return chatID, nil
}

// runOneTurn advances the conversation by one message and returns the reply.
func runOneTurn(ctx context.Context, a *app.App, chatID, input string) (string, error) {
	unlock := a.Locker.Lock(chatID)
	defer unlock()

	state, err := a.Store.Load(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("loading session: %w", err)
	}
	if err := a.Engine.RunTurn(ctx, state, input); err != nil {
		return "", fmt.Errorf("running turn: %w", err)
	}
	if err := a.Store.Save(ctx, state); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}
	return state.LastAssistantMessage(), nil
}

// resetSession wipes the stored state for chatID but keeps the same ID.
func resetSession(ctx context.Context, a *app.App, chatID string) error {
	unlock := a.Locker.Lock(chatID)
	defer unlock()

	state, err := a.Store.Load(ctx, chatID)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	state.Reset()
	if err := a.Store.Save(ctx, state); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}
