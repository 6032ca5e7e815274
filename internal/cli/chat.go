package cli

import (
	"bufio"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"brainoutai/internal/config"
	"brainoutai/internal/conversation"
	"brainoutai/internal/models"
	"brainoutai/internal/session"
	"brainoutai/internal/storage"
)

var chatServerURL string

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat against a running BrainOutAI server",
		RunE:  runChat,
	}
	cmd.Flags().StringVar(&chatServerURL, "server", "http://localhost:3001", "base URL of the BrainOutAI server")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return err
	}
	dbType := os.Getenv("BRAINOUTAI_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	var db *sql.DB
	if _, ok := cfg.Databases[dbType]; ok {
		db, err = storage.Open(dbType, cfg)
	} else {
		// No database configured: the session lives only for this run.
		log.Printf("no %s database configured, session will not persist", dbType)
		dbType = "sqlite3"
		db, err = storage.OpenMemory()
	}
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	ctx := cmd.Context()
	client := conversation.NewClient(chatServerURL)
	if err := client.Health(ctx); err != nil {
		log.Printf("server not reachable at %s: %v", chatServerURL, err)
	}

	limiter := session.NewLimiter(session.NewDBStore(db))
	orch := conversation.New(client, limiter)

	out := cmd.OutOrStdout()
	suggestions := suggestQuestions(4)
	fmt.Fprintln(out, "🧠 BrainOutAI - ask me anything simple, get something complicated back.")
	fmt.Fprintln(out, "Try asking:")
	for i, q := range suggestions {
		fmt.Fprintf(out, "  %d. %q\n", i+1, q)
	}
	fmt.Fprintln(out, "Commands: /harder /clear /quota /attach <path> /quit")

	var attachments []models.FileRef
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit", line == "/exit":
			return nil
		case line == "/quota":
			used, limit := orch.Quota()
			fmt.Fprintf(out, "queries used this hour: %d/%d\n", used, limit)
			continue
		case line == "/clear":
			if err := orch.Clear(ctx); err != nil {
				fmt.Fprintf(out, "clear failed: %v\n", err)
				continue
			}
			attachments = nil
			fmt.Fprintln(out, "conversation cleared")
			continue
		case line == "/harder":
			msg, err := orch.Elaborate(ctx)
			if err != nil {
				fmt.Fprintf(out, "could not make it harder: %v\n", err)
				continue
			}
			if msg == nil {
				fmt.Fprintln(out, "nothing to elaborate on yet")
				continue
			}
			fmt.Fprintf(out, "ai> %s\n", msg.Text)
			continue
		case strings.HasPrefix(line, "/attach "):
			ref, err := fileRefFor(strings.TrimSpace(strings.TrimPrefix(line, "/attach ")))
			if err != nil {
				fmt.Fprintf(out, "attach failed: %v\n", err)
				continue
			}
			attachments = append(attachments, ref)
			fmt.Fprintf(out, "attached %s (%d bytes), will be sent with the next message\n", ref.Name, ref.Size)
			continue
		}

		text := line
		// A bare suggestion number sends that question.
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(suggestions) {
			text = suggestions[n-1]
			fmt.Fprintf(out, "you> %s\n", text)
		}

		result, err := orch.Send(ctx, text, attachments)
		if err != nil {
			if errors.Is(err, conversation.ErrEmptyInput) {
				continue
			}
			fmt.Fprintf(out, "send failed: %v\n", err)
			continue
		}
		attachments = nil
		fmt.Fprintf(out, "ai> %s\n", result.Reply.Text)
		if result.Outcome == conversation.OutcomeRateLimited {
			used, limit := orch.Quota()
			fmt.Fprintf(out, "(rate limit reached: %d/%d queries this hour, serving cached wisdom)\n", used, limit)
		}
	}
	return scanner.Err()
}

func fileRefFor(path string) (models.FileRef, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.FileRef{}, err
	}
	if info.IsDir() {
		return models.FileRef{}, fmt.Errorf("%s is a directory", path)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return models.FileRef{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Size:     info.Size(),
		Path:     path,
	}, nil
}
