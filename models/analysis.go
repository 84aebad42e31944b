package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// analysisGenerator produces the analysis HTML consumed by the report cache.
// Swappable in tests; the default asks Gemini.
var analysisGenerator = geminiAnalysis

func generateAnalysis(ctx context.Context, owner OwnerRef, monthYear string, transactions []*Transaction) (string, error) {
	return analysisGenerator(ctx, owner, monthYear, transactions)
}

func geminiAnalysis(ctx context.Context, owner OwnerRef, monthYear string, transactions []*Transaction) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", errors.New("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return "", err
	}

	var promptBuilder strings.Builder
	promptBuilder.WriteString("You are a personal finance analyst for a couple sharing expenses.\n")
	promptBuilder.WriteString("Write a short monthly analysis in Brazilian Portuguese as an HTML fragment (no <html> or <body> tags, no markdown).\n")
	promptBuilder.WriteString("Cover: total income, total expenses, largest categories, and one practical suggestion.\n\n")
	promptBuilder.WriteString(fmt.Sprintf("Month: %s\nTransactions:\n", monthYear))

	for _, t := range transactions {
		promptBuilder.WriteString(fmt.Sprintf(`{"type": "%s", "category": "%s", "description": "%s", "amount": %s}`+"\n",
			t.Type, t.Category, t.Description, t.Amount.StringFixed(2)))
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-1.5-flash"
	}
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(promptBuilder.String()), nil)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty response from AI")
	}

	rawText := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			rawText += part.Text
		}
	}

	// strip markdown fencing the model loves to add
	rawText = strings.TrimSpace(rawText)
	rawText = strings.TrimPrefix(rawText, "```html")
	rawText = strings.TrimPrefix(rawText, "```")
	rawText = strings.TrimSuffix(rawText, "```")
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return "", errors.New("empty response from AI")
	}
	return rawText, nil
}
