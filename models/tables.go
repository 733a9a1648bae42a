package models

import "time"

// Issue types
const (
	WeeklyIssue = 1
	OtherIssue  = 2
)

type Issue struct {
	ID               uint      `gorm:"primary_key;autoIncrement" json:"id"`
	Title            string    `gorm:"not null" json:"title"`
	IssueNumber      int       `gorm:"unique;not null;index" json:"issue_number"` // used as the slug for each issue
	PublishDate      time.Time `gorm:"not null;index" json:"publish_date"`
	IssueType        int       `gorm:"default:1" json:"issue_type"`
	ShortDescription string    `gorm:"type:text" json:"short_description"`
	IsDraft          bool      `gorm:"default:false;index" json:"is_draft"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsPublished reports whether the issue is visible to the public:
// not a draft and its publish date has passed.
func (i *Issue) IsPublished() bool {
	return !i.IsDraft && !i.PublishDate.After(time.Now())
}

type PostCategory struct {
	ID    uint   `gorm:"primary_key;autoIncrement" json:"id"`
	Name  string `gorm:"not null" json:"name"`
	Order int    `gorm:"default:0" json:"order"`
}

type Post struct {
	ID               uint          `gorm:"primary_key;autoIncrement" json:"id"`
	IssueID          *uint         `gorm:"index" json:"issue_id"`    // nullable - a post can exist before being assigned
	CategoryID       *uint         `gorm:"index" json:"category_id"` // nullable
	Issue            *Issue        `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Category         *PostCategory `gorm:"constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Title            string        `gorm:"not null" json:"title"`
	SourceURL        string        `gorm:"not null" json:"source_url"`
	ShortDescription string        `gorm:"type:text" json:"short_description"`
	IsVisible        bool          `gorm:"default:false;index" json:"is_visible"`
	Order            int           `gorm:"default:0" json:"order"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

type Newsletter struct {
	ID        uint       `gorm:"primary_key;autoIncrement" json:"id"`
	IssueID   uint       `gorm:"not null;index" json:"issue_id"`
	Issue     *Issue     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Subject   string     `gorm:"not null" json:"subject"`
	Schedule  *time.Time `json:"schedule,omitempty"`
	IsSent    bool       `gorm:"default:false;index" json:"is_sent"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Subscriber struct {
	ID                   uint       `gorm:"primary_key;autoIncrement" json:"id"`
	EmailAddress         string     `gorm:"unique;not null" json:"email_address"`
	Token                string     `gorm:"unique;not null" json:"-"` // rotating confirmation token (UUID)
	Verified             bool       `gorm:"default:false" json:"verified"`
	Subscribed           bool       `gorm:"default:false" json:"subscribed"`
	VerificationSentDate *time.Time `json:"verification_sent_date,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// Active reports whether the subscriber should receive newsletters.
// Both flags are cleared together on unsubscribe.
func (s *Subscriber) Active() bool {
	return s.Verified && s.Subscribed
}

type Editor struct {
	ID           uint   `gorm:"primary_key;autoIncrement" json:"id"`
	Email        string `gorm:"unique;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"` // json:"-" prevents password from being exposed in API
}
