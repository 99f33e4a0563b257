package news

import (
	"context"
	"fmt"
	"strings"

	"github.com/victorbash400/canary/internal/ai"
)

// fallbackCategories maps topic keywords to a category when the model is
// unavailable. Ordered so matching stays deterministic.
var fallbackCategories = []struct {
	keywords []string
	category string
}{
	{[]string{"ai", "tech", "software", "startup", "programming"}, "Technology"},
	{[]string{"business", "company", "corporate"}, "Business"},
	{[]string{"finance", "stock", "investment", "crypto"}, "Finance"},
	{[]string{"job", "career", "hiring", "work"}, "Career"},
	{[]string{"health", "medical", "wellness"}, "Health"},
	{[]string{"sport", "athletic", "fitness"}, "Sports"},
	{[]string{"food", "restaurant", "cooking"}, "Food"},
	{[]string{"travel", "tourism", "vacation"}, "Travel"},
	{[]string{"agriculture", "farming", "crops"}, "Agriculture"},
}

const categoryPrompt = `Categorize this news topic into a single word category.

Topic: %s

Respond with exactly one word, like Technology, Finance, Health, Sports, Politics, Science, Entertainment, Agriculture, or any other single word that best fits. No punctuation, no explanation.`

// Categorize asks the model for a one-word category, falling back to a
// keyword table when the model fails or rambles.
func Categorize(ctx context.Context, gen ai.Generator, topic string) string {
	raw, err := gen.Generate(ctx, fmt.Sprintf(categoryPrompt, topic))
	if err == nil {
		word := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), ".\"'"))
		if word != "" && !strings.ContainsAny(word, " \n\t") {
			return titleCase(word)
		}
	}
	return fallbackCategory(topic)
}

func fallbackCategory(topic string) string {
	lower := strings.ToLower(topic)
	for _, entry := range fallbackCategories {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.category
			}
		}
	}
	return "General"
}
