package prefs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorbash400/canary/internal/model"
)

func TestValidateTopicName(t *testing.T) {
	assert.Equal(t, "Tesla Stock", ValidateTopicName("  tesla stock  "))
	assert.Equal(t, "Ai Regulation", ValidateTopicName("ai regulation"))
	assert.Equal(t, "", ValidateTopicName(" a "))
	assert.Equal(t, "", ValidateTopicName(""))

	long := strings.Repeat("Verylongword ", 10)
	assert.LessOrEqual(t, len(ValidateTopicName(long)), 50)
}

func TestValidateTopicNameMultibyte(t *testing.T) {
	assert.Equal(t, "Économie Verte", ValidateTopicName("économie verte"))
	assert.Equal(t, "Übernahme München", ValidateTopicName("übernahme MÜNCHEN"))
	assert.Equal(t, "日本 Markets", ValidateTopicName("日本 markets"))

	// truncation must not split a rune
	got := ValidateTopicName(strings.Repeat("é", 60))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 50, utf8.RuneCountInString(got))
}

func TestApplyTopicChanges(t *testing.T) {
	prefs := model.DefaultPreferences()
	prefs.MonitoringTopics = []string{"Bitcoin"}

	applied := ApplyTopicChanges(&prefs, TopicChanges{
		Add:    []string{"tesla stock", "bitcoin", "x"},
		Remove: []string{"nothing tracked"},
	})

	// duplicate and too-short additions are skipped, unknown removals are silent
	assert.Equal(t, []string{"✅ Now tracking: Tesla Stock"}, applied)
	assert.Equal(t, []string{"Bitcoin", "Tesla Stock"}, prefs.MonitoringTopics)
}

func TestApplyTopicChangesRemove(t *testing.T) {
	prefs := model.DefaultPreferences()
	prefs.MonitoringTopics = []string{"Tesla Stock", "Bitcoin"}

	applied := ApplyTopicChanges(&prefs, TopicChanges{Remove: []string{"TESLA STOCK"}})
	assert.Equal(t, []string{"❌ Stopped tracking: Tesla Stock"}, applied)
	assert.Equal(t, []string{"Bitcoin"}, prefs.MonitoringTopics)
}

func TestApplyEmailChangeEnable(t *testing.T) {
	prefs := model.DefaultPreferences()
	applied := ApplyEmailChange(&prefs, &EmailChange{Action: EmailActionEnable, FrequencyHours: 2})
	assert.Equal(t, []string{"✅ Email notifications enabled"}, applied)
	assert.True(t, prefs.EmailNotifications)
	assert.Equal(t, 2, prefs.EmailFrequencyHours)
}

func TestApplyEmailChangeDisable(t *testing.T) {
	prefs := model.DefaultPreferences()
	prefs.EmailNotifications = true
	applied := ApplyEmailChange(&prefs, &EmailChange{Action: EmailActionDisable})
	assert.Equal(t, []string{"❌ Email notifications disabled"}, applied)
	assert.False(t, prefs.EmailNotifications)
}

func TestApplyEmailChangeFrequencyImpliesEnable(t *testing.T) {
	prefs := model.DefaultPreferences()
	require.False(t, prefs.EmailNotifications)

	applied := ApplyEmailChange(&prefs, &EmailChange{Action: EmailActionChangeFrequency, FrequencyHours: 24})
	assert.Equal(t, []string{
		"✅ Email notifications enabled",
		"⏰ Email frequency set to daily",
	}, applied)
	assert.True(t, prefs.EmailNotifications)
	assert.Equal(t, 24, prefs.EmailFrequencyHours)
}

func TestApplyEmailChangeClampsFrequency(t *testing.T) {
	prefs := model.DefaultPreferences()
	ApplyEmailChange(&prefs, &EmailChange{Action: EmailActionChangeFrequency, FrequencyHours: 100})
	assert.Equal(t, 24, prefs.EmailFrequencyHours)

	ApplyEmailChange(&prefs, &EmailChange{Action: EmailActionChangeFrequency, FrequencyHours: 0})
	assert.Equal(t, 1, prefs.EmailFrequencyHours)
}

func TestDescribeFrequency(t *testing.T) {
	assert.Equal(t, "every hour", DescribeFrequency(1))
	assert.Equal(t, "every 6 hours", DescribeFrequency(6))
	assert.Equal(t, "daily", DescribeFrequency(24))
}

func TestUnion(t *testing.T) {
	got := Union([]string{"Tesla"}, []string{"tesla", "Bitcoin", "", "Bitcoin"})
	assert.Equal(t, []string{"Tesla", "Bitcoin"}, got)
}

type cannedGen struct {
	out string
	err error
}

func (c cannedGen) Generate(_ context.Context, _ string) (string, error) { return c.out, c.err }

func TestExtractorTopicChanges(t *testing.T) {
	gen := cannedGen{out: "```json\n{\"add\":[\"Tesla Stock\"],\"remove\":[],\"reasoning\":\"asked to track\"}\n```"}
	e := NewExtractor(gen, zerolog.Nop())
	got := e.TopicChanges(context.Background(), "track tesla stock please")
	assert.Equal(t, []string{"Tesla Stock"}, got.Add)
	assert.False(t, got.Empty())
}

func TestExtractorTopicChangesFailureIsEmpty(t *testing.T) {
	e := NewExtractor(cannedGen{err: errors.New("down")}, zerolog.Nop())
	assert.True(t, e.TopicChanges(context.Background(), "anything").Empty())

	e = NewExtractor(cannedGen{out: "not json"}, zerolog.Nop())
	assert.True(t, e.TopicChanges(context.Background(), "anything").Empty())
}

func TestExtractorEmailChange(t *testing.T) {
	gen := cannedGen{out: `{"action":"change_frequency","frequency_hours":24,"urgent_only":false,"reasoning":"daily"}`}
	e := NewExtractor(gen, zerolog.Nop())
	got := e.EmailChange(context.Background(), "email me daily")
	require.NotNil(t, got)
	assert.Equal(t, EmailActionChangeFrequency, got.Action)
	assert.Equal(t, 24, got.FrequencyHours)
}

func TestExtractorEmailChangeNone(t *testing.T) {
	e := NewExtractor(cannedGen{out: `{"action":"none","frequency_hours":0,"urgent_only":false,"reasoning":"nothing"}`}, zerolog.Nop())
	assert.Nil(t, e.EmailChange(context.Background(), "hello"))

	e = NewExtractor(cannedGen{err: errors.New("down")}, zerolog.Nop())
	assert.Nil(t, e.EmailChange(context.Background(), "hello"))
}

func TestExtractorInsights(t *testing.T) {
	gen := cannedGen{out: `{"interests":["electric vehicles"],"monitoring_topics":["Tesla Stock"],"relevance_threshold":80,"memory_summary":"Follows EV markets closely."}`}
	e := NewExtractor(gen, zerolog.Nop())
	got := e.Insights(context.Background(), "User: I care about EVs")
	require.NotNil(t, got)
	assert.Equal(t, 80, got.RelevanceThreshold)
	assert.Equal(t, []string{"Tesla Stock"}, got.MonitoringTopics)

	assert.Nil(t, NewExtractor(cannedGen{out: "garbage"}, zerolog.Nop()).Insights(context.Background(), "x"))
}
