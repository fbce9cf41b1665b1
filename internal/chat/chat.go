// Package chat answers follow-up questions about a completed report. Every
// reply is grounded in the stored analysis; the model is instructed to
// refuse questions it cannot answer from the report.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/usamaalam01/LabReportAI/internal/llm"
	"github.com/usamaalam01/LabReportAI/internal/logger"
	"github.com/usamaalam01/LabReportAI/pkg/models"
)

// Message roles in a conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    string
	Content string
}

const systemPrompt = `You are a helpful medical assistant discussing a specific lab report with the patient.

Rules:
- Answer ONLY from the lab report analysis provided below. If the report does not contain the information needed, say so.
- Explain in plain language a patient can understand.
- Never diagnose, prescribe, or recommend treatment. For anything clinical, advise consulting a qualified physician.
- Keep answers short and conversational, a few sentences at most.
- If asked about something unrelated to this lab report, politely decline.`

const promptTemplate = `Lab report analysis:
%s

Conversation so far:
%s

User: %s`

// Service generates chat replies about one report's analysis.
type Service struct {
	provider llm.Provider
	model    string
	analysis *models.Analysis
	context  string
	log      zerolog.Logger
}

// New builds a chat service from a report's stored analysis JSON.
func New(provider llm.Provider, model, resultJSON string) (*Service, error) {
	var analysis models.Analysis
	if err := json.Unmarshal([]byte(resultJSON), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse stored analysis: %w", err)
	}

	pretty, err := json.MarshalIndent(&analysis, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis context: %w", err)
	}

	return &Service{
		provider: provider,
		model:    model,
		analysis: &analysis,
		context:  string(pretty),
		log:      logger.WithComponent("chat"),
	}, nil
}

// Reply answers one user message given the conversation so far.
func (s *Service) Reply(ctx context.Context, message string, history []Message) (string, error) {
	content, err := s.provider.Complete(ctx, llm.Request{
		Model:       s.model,
		System:      systemPrompt,
		Prompt:      fmt.Sprintf(promptTemplate, s.context, formatHistory(history), message),
		Temperature: 0.4,
		MaxTokens:   800,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Chat completion failed")
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return strings.TrimSpace(content), nil
}

func formatHistory(history []Message) string {
	if len(history) == 0 {
		return "(No previous messages)"
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		role := "Assistant"
		if msg.Role == RoleUser {
			role = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, msg.Content))
	}
	return strings.Join(lines, "\n")
}

// StarterSuggestions proposes up to four opening questions based on the
// report's findings, leading with its most severe abnormal value.
func (s *Service) StarterSuggestions() []string {
	var suggestions []string

	var critical, borderline []models.Test
	var issueCategories []string
	for _, category := range s.analysis.Categories {
		for _, test := range category.Tests {
			switch test.Severity {
			case models.SeverityCritical:
				critical = append(critical, test)
			case models.SeverityBorderline:
				borderline = append(borderline, test)
			default:
				continue
			}
			issueCategories = append(issueCategories, category.Name)
		}
	}

	if len(critical) > 0 {
		suggestions = append(suggestions,
			fmt.Sprintf("What does my critical %s level mean?", critical[0].TestName))
	}
	if len(borderline) > 0 && len(suggestions) < 2 {
		suggestions = append(suggestions,
			fmt.Sprintf("Should I be concerned about my %s?", borderline[0].TestName))
	}
	if len(critical)+len(borderline) > 0 {
		suggestions = append(suggestions, lifestyleQuestion(issueCategories))
	}

	generic := []string{
		"Give me an overview of my lab results.",
		"Are there any values I should pay attention to?",
		"What do my results mean overall?",
		"Should I discuss any results with my doctor?",
	}
	for _, q := range generic {
		if len(suggestions) >= 4 {
			break
		}
		if !contains(suggestions, q) {
			suggestions = append(suggestions, q)
		}
	}
	return suggestions[:min(len(suggestions), 4)]
}

// lifestyleQuestion picks an improvement question matching the category of
// the abnormal findings.
func lifestyleQuestion(categories []string) string {
	joined := strings.Join(categories, " ")
	switch {
	case strings.Contains(joined, "Lipid"):
		return "What dietary changes can help improve my cholesterol?"
	case strings.Contains(joined, "CBC"), strings.Contains(joined, "Blood"):
		return "How can I improve my blood health naturally?"
	case strings.Contains(joined, "Liver"):
		return "What lifestyle changes support liver health?"
	case strings.Contains(joined, "Kidney"):
		return "How can I support my kidney function?"
	case strings.Contains(joined, "Thyroid"):
		return "What factors affect thyroid health?"
	default:
		return "What lifestyle changes do you recommend based on my results?"
	}
}

// topic groups the keywords used to steer follow-up suggestions.
type topic struct {
	keywords  []string
	followups []string
}

var followupTopics = []topic{
	{
		keywords: []string{"cholesterol", "ldl", "hdl", "lipid", "triglyceride"},
		followups: []string{
			"What foods should I eat to lower cholesterol?",
			"How does exercise affect cholesterol levels?",
			"Tell me about my other lipid values.",
		},
	},
	{
		keywords: []string{"hemoglobin", "rbc", "wbc", "platelet", "anemia", "cbc"},
		followups: []string{
			"What foods are rich in iron?",
			"What causes low hemoglobin levels?",
		},
	},
	{
		keywords: []string{"liver", "alt", "ast", "bilirubin", "albumin"},
		followups: []string{
			"What foods support liver health?",
			"What can damage the liver?",
		},
	},
	{
		keywords: []string{"kidney", "creatinine", "bun", "egfr", "urea"},
		followups: []string{
			"How much water should I drink daily?",
			"What foods are good for kidney health?",
		},
	},
	{
		keywords: []string{"thyroid", "tsh", "t3", "t4"},
		followups: []string{
			"What affects thyroid function?",
			"Are there foods that support thyroid health?",
		},
	},
}

// FollowupSuggestions proposes up to three follow-up questions based on the
// last exchange.
func (s *Service) FollowupSuggestions(lastQuestion, lastAnswer string) []string {
	exchange := strings.ToLower(lastQuestion + " " + lastAnswer)

	var suggestions []string
	for _, t := range followupTopics {
		if !mentionsAny(exchange, t.keywords) {
			continue
		}
		suggestions = append(suggestions, t.followups...)
		break
	}

	if len(suggestions) < 3 {
		suggestions = append(suggestions, "What other results should I know about?")
	}
	if len(suggestions) < 2 {
		suggestions = append(suggestions,
			"Should I follow up with my doctor?",
			"What tests might I need in the future?")
	}
	return suggestions[:min(len(suggestions), 3)]
}

func mentionsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
