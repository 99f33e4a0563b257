package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorbash400/canary/internal/model"
)

func article(title, urgency string, score int) *model.Article {
	return &model.Article{
		Title:          title,
		Summary:        "summary of " + title,
		URL:            "https://example.com/" + title,
		Category:       "Finance",
		RelevanceScore: score,
		Urgency:        urgency,
	}
}

func TestBuildDigestUrgentSubject(t *testing.T) {
	articles := []*model.Article{
		article("a", model.UrgencyHigh, 95),
		article("b", model.UrgencyMedium, 80),
	}
	msg, err := BuildDigest("user@example.com", "Sam", articles, "https://canary.test")
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", msg.To)
	assert.Equal(t, "🚨 1 Urgent Update from Canary", msg.Subject)
	assert.Contains(t, msg.HTML, "summary of a")
	assert.Contains(t, msg.HTML, "summary of b")
	assert.Contains(t, msg.Text, "https://example.com/a")
	assert.Contains(t, msg.HTML, "https://canary.test")
}

func TestBuildDigestRegularSubject(t *testing.T) {
	articles := []*model.Article{
		article("a", model.UrgencyMedium, 80),
		article("b", model.UrgencyMedium, 78),
	}
	msg, err := BuildDigest("user@example.com", "Sam", articles, "https://canary.test")
	require.NoError(t, err)
	assert.Equal(t, "📰 2 News Updates from Canary", msg.Subject)
}

func TestBuildDigestCapsSections(t *testing.T) {
	var articles []*model.Article
	for i := 0; i < 5; i++ {
		articles = append(articles, article("urgent", model.UrgencyHigh, 90))
	}
	for i := 0; i < 6; i++ {
		articles = append(articles, article("regular", model.UrgencyMedium, 80))
	}
	msg, err := BuildDigest("user@example.com", "Sam", articles, "https://canary.test")
	require.NoError(t, err)
	// capped at 2 urgent + 4 regular
	assert.Equal(t, "🚨 2 Urgent Updates from Canary", msg.Subject)
	assert.Equal(t, 6, countOccurrences(msg.Text, "- "))
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}

func TestBuildWelcome(t *testing.T) {
	msg := BuildWelcome("new@example.com", "Riley", "https://canary.test")
	assert.Equal(t, "🐤 Welcome to Canary", msg.Subject)
	assert.Contains(t, msg.HTML, "Riley")
	assert.Contains(t, msg.Text, "https://canary.test")
}

func TestBuildPreferenceConfirmation(t *testing.T) {
	p := model.DefaultPreferences()
	p.MonitoringTopics = []string{"Tesla Stock", "Bitcoin"}
	p.EmailNotifications = true
	p.EmailFrequencyHours = 6

	msg := BuildPreferenceConfirmation("u@example.com", "Sam", []string{"✅ Now tracking: Bitcoin"}, p, "https://canary.test")
	assert.Equal(t, "🐤 Your Canary settings were updated", msg.Subject)
	assert.Contains(t, msg.HTML, "Now tracking: Bitcoin")
	assert.Contains(t, msg.Text, "Tesla Stock, Bitcoin")
	assert.Contains(t, msg.Text, "every 6 hours")
}

func TestBuildPreferenceConfirmationEmailOff(t *testing.T) {
	p := model.DefaultPreferences()
	msg := BuildPreferenceConfirmation("u@example.com", "Sam", []string{"❌ Email notifications disabled"}, p, "https://canary.test")
	assert.Contains(t, msg.Text, "Email: off")
}
