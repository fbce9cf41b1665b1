package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/usamaalam01/LabReportAI/internal/chat"
	"github.com/usamaalam01/LabReportAI/internal/config"
	"github.com/usamaalam01/LabReportAI/internal/llm"
	"github.com/usamaalam01/LabReportAI/internal/logger"
	"github.com/usamaalam01/LabReportAI/internal/store"
	"github.com/usamaalam01/LabReportAI/pkg/models"
)

var chatCmd = &cobra.Command{
	Use:   "chat [job-id]",
	Short: "Ask questions about a completed report",
	Long: `Start an interactive session that answers questions about a completed
report's analysis. Replies are grounded in the stored results only; the
assistant will not diagnose or prescribe.

Type "exit" or "quit" to end the session.`,
	Example: `  labreport chat 3f2c9a10-8a4e-4d2b-9c1f-5e6a7b8c9d0e`,
	Args:    cobra.ExactArgs(1),
	RunE:    runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	jobID := args[0]
	log := logger.WithJobID(jobID)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := cmd.Context()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	report, err := st.GetByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no job with ID %q", jobID)
		}
		return err
	}
	if report.Status != models.StatusCompleted {
		return fmt.Errorf("job %s is %s; chat needs a completed report", jobID, report.Status)
	}
	if report.ResultJSON == "" {
		return fmt.Errorf("job %s has no stored analysis", jobID)
	}

	provider := llm.NewOpenAIProvider(cfg.LLMAPIKey, cfg.LLMBaseURL)
	svc, err := chat.New(provider, cfg.LLMChatModel, report.ResultJSON)
	if err != nil {
		return err
	}

	fmt.Printf("Chatting about report %s. Type \"exit\" to quit.\n\n", jobID)
	printSuggestions(svc.StarterSuggestions())

	var history []chat.Message
	asked := 0
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}
		if cfg.ChatMessageLimit > 0 && asked >= cfg.ChatMessageLimit {
			fmt.Printf("Message limit reached for this session (%d questions).\n", cfg.ChatMessageLimit)
			break
		}

		answer, err := svc.Reply(ctx, question, history)
		if err != nil {
			log.Warn().Err(err).Msg("Chat reply failed")
			fmt.Println("I'm sorry, I encountered an error. Please try again.")
			continue
		}
		asked++

		fmt.Printf("\n%s\n\n", answer)
		printSuggestions(svc.FollowupSuggestions(question, answer))

		history = append(history,
			chat.Message{Role: chat.RoleUser, Content: question},
			chat.Message{Role: chat.RoleAssistant, Content: answer},
		)
	}
	return scanner.Err()
}

func printSuggestions(suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Println("Suggested questions:")
	for _, s := range suggestions {
		fmt.Printf("  - %s\n", s)
	}
	fmt.Println()
}
