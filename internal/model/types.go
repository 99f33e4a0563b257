package model

import "time"

// User represents an account in the system. Preferences are stored as a
// single blob alongside the account row; Version guards read-modify-write
// cycles on that blob.
type User struct {
	UserID       string      `json:"userId"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Username     string      `json:"username"`
	CreatedAt    time.Time   `json:"createdAt"`
	LastActive   time.Time   `json:"lastActive"`
	Preferences  Preferences `json:"preferences"`
	Version      int64       `json:"-"`
}

// Preferences is the per-user preference blob. MonitoringTopics carries no
// duplicates; EmailFrequencyHours is clamped to [1,24] when set through
// natural-language inference.
type Preferences struct {
	Interests           []string   `json:"interests"`
	MonitoringTopics    []string   `json:"monitoring_topics"`
	RelevanceThreshold  int        `json:"relevance_threshold"`
	UpdateFrequency     string     `json:"update_frequency"`
	UrgentAlerts        bool       `json:"urgent_alerts"`
	EmailNotifications  bool       `json:"email_notifications"`
	EmailFrequencyHours int        `json:"email_frequency_hours"`
	UrgentOnly          bool       `json:"urgent_only"`
	LastEmailSent       *time.Time `json:"last_email_sent,omitempty"`
}

// DefaultPreferences returns the preference blob assigned at registration.
func DefaultPreferences() Preferences {
	return Preferences{
		Interests:           []string{},
		MonitoringTopics:    []string{},
		RelevanceThreshold:  75,
		UpdateFrequency:     "hourly",
		UrgentAlerts:        true,
		EmailNotifications:  false,
		EmailFrequencyHours: 1,
	}
}

// Chat groups messages under a user.
type Chat struct {
	ChatID        string    `json:"chatId"`
	UserID        string    `json:"userId"`
	Title         string    `json:"title"`
	CreatedAt     time.Time `json:"createdAt"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	MessageCount  int       `json:"messageCount"`
	IsActive      bool      `json:"isActive"`
}

// Message is an immutable record of one conversation turn half.
type Message struct {
	MessageID   string    `json:"messageId"`
	ChatID      string    `json:"chatId"`
	UserID      string    `json:"userId"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	MessageType string    `json:"messageType"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UserMemory is the rolling free-text summary of what the assistant has
// inferred about a user, plus the interests extracted along the way.
type UserMemory struct {
	UserID             string    `json:"userId"`
	MemorySnapshot     string    `json:"memorySnapshot"`
	ExtractedInterests []string  `json:"extractedInterests"`
	ConversationCount  int       `json:"conversationCount"`
	LastUpdated        time.Time `json:"lastUpdated"`
}

// Article is assembled fresh on every fetch; it is never persisted.
type Article struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	Source         string    `json:"source"`
	PublishedAt    time.Time `json:"publishedAt"`
	URL            string    `json:"url"`
	Category       string    `json:"category"`
	RelevanceScore int       `json:"relevanceScore"`
	Urgency        string    `json:"urgency"`
	ImageURL       string    `json:"imageUrl"`
	Tags           []string  `json:"tags"`
	Content        string    `json:"content"`
	Citations      []string  `json:"citations"`
	Analysis       *Analysis `json:"gemini_analysis,omitempty"`
}

// Urgency tiers. Derived from the relevance score (score > 85 is high),
// independent of whatever urgency the model itself reported.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Analysis is the model's scoring of one article.
type Analysis struct {
	PersonalizedSummary string   `json:"personalized_summary"`
	RelevanceScore      int      `json:"relevance_score"`
	KeyPoints           []string `json:"key_points"`
	Sentiment           string   `json:"sentiment"`
	Urgency             string   `json:"urgency"`
	Tags                []string `json:"tags"`
}

// DigestReport summarizes one scheduled sweep.
type DigestReport struct {
	Sent    int `json:"emails_sent"`
	Skipped int `json:"users_skipped"`
	Errors  int `json:"errors"`
	Checked int `json:"total_users_checked"`
}
