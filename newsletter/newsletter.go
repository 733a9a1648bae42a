package newsletter

import (
	"fmt"
	"html/template"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"newsfeed/models"
)

// Mailer is the slice of the email service the newsletter sender needs.
type Mailer interface {
	SendNewsletter(to, subject, htmlBody string) error
}

type NewsletterModule struct {
	db     *gorm.DB
	mailer Mailer
	cron   *cron.Cron
}

func NewNewsletterModule(db *gorm.DB, mailer Mailer) *NewsletterModule {
	return &NewsletterModule{db: db, mailer: mailer}
}

// StartScheduler checks for due newsletters once a minute.
func (n *NewsletterModule) StartScheduler() error {
	n.cron = cron.New()
	if _, err := n.cron.AddFunc("* * * * *", n.sendDue); err != nil {
		return err
	}
	n.cron.Start()
	log.Println("Newsletter scheduler started")
	return nil
}

func (n *NewsletterModule) StopScheduler() {
	if n.cron != nil {
		n.cron.Stop()
	}
}

// DueNewsletters returns unsent newsletters whose schedule has passed
// and whose issue is published.
func (n *NewsletterModule) DueNewsletters(now time.Time) ([]models.Newsletter, error) {
	var due []models.Newsletter
	err := n.db.
		Joins("JOIN issues ON issues.id = newsletters.issue_id").
		Where("newsletters.is_sent = ? AND newsletters.schedule IS NOT NULL AND newsletters.schedule <= ?", false, now).
		Where("issues.is_draft = ? AND issues.publish_date <= ?", false, now).
		Find(&due).Error
	return due, err
}

func (n *NewsletterModule) sendDue() {
	due, err := n.DueNewsletters(time.Now())
	if err != nil {
		log.Printf("Error loading due newsletters: %v", err)
		return
	}

	for i := range due {
		if err := n.Send(&due[i]); err != nil {
			log.Printf("Error sending newsletter %d: %v", due[i].ID, err)
		}
	}
}

// Send mails the newsletter's issue to every active subscriber, in
// batches when EMAIL_BATCH_SIZE is set, then marks it sent.
func (n *NewsletterModule) Send(newsletter *models.Newsletter) error {
	var issue models.Issue
	if err := n.db.First(&issue, newsletter.IssueID).Error; err != nil {
		return err
	}

	var posts []models.Post
	if err := n.db.Preload("Category").
		Where("issue_id = ? AND is_visible = ?", issue.ID, true).
		Order("`order` ASC").
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		return err
	}

	var subscribers []models.Subscriber
	if err := n.db.Where("verified = ? AND subscribed = ?", true, true).
		Find(&subscribers).Error; err != nil {
		return err
	}

	body := buildDigest(&issue, posts)

	batchSize := envInt("EMAIL_BATCH_SIZE", 0)
	interval := time.Duration(envInt("EMAIL_BATCH_INTERVAL_SECONDS", 0)) * time.Second

	for i, sub := range subscribers {
		if batchSize > 0 && i > 0 && i%batchSize == 0 && interval > 0 {
			time.Sleep(interval)
		}

		if err := n.mailer.SendNewsletter(sub.EmailAddress, newsletter.Subject, body); err != nil {
			log.Printf("Error sending newsletter to %s: %v", sub.EmailAddress, err)
		}
	}

	now := time.Now()
	newsletter.IsSent = true
	newsletter.SentAt = &now
	return n.db.Save(newsletter).Error
}

// buildDigest renders the issue into a simple HTML email body with an
// unsubscribe link in the footer.
func buildDigest(issue *models.Issue, posts []models.Post) string {
	domain := os.Getenv("DOMAIN")
	if domain == "" {
		domain = "http://localhost:8080"
	}
	domain = strings.TrimSuffix(domain, "/")

	var b strings.Builder
	b.WriteString("<h1>" + template.HTMLEscapeString(issue.Title) + "</h1>\n")
	if issue.ShortDescription != "" {
		b.WriteString("<p>" + template.HTMLEscapeString(issue.ShortDescription) + "</p>\n")
	}

	lastCategory := ""
	for _, post := range posts {
		if post.Category != nil && post.Category.Name != lastCategory {
			lastCategory = post.Category.Name
			b.WriteString("<h2>" + template.HTMLEscapeString(lastCategory) + "</h2>\n")
		}

		b.WriteString(fmt.Sprintf("<h3><a href=\"%s\">%s</a></h3>\n",
			template.HTMLEscapeString(post.SourceURL),
			template.HTMLEscapeString(post.Title)))
		if post.ShortDescription != "" {
			b.WriteString("<p>" + template.HTMLEscapeString(post.ShortDescription) + "</p>\n")
		}
	}

	b.WriteString(fmt.Sprintf("<hr>\n<p><a href=\"%s/issues/%d\">Read this issue online</a> &middot; "+
		"<a href=\"%s/newsletter/unsubscribe\">Unsubscribe</a></p>\n",
		domain, issue.IssueNumber, domain))

	return b.String()
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
