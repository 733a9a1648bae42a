package subscription

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"newsfeed/models"
)

// resendCooldown limits how often a verification email may be re-sent
// to the same address.
const resendCooldown = 5 * time.Minute

const defaultExpireDays = 3

// Mailer is the slice of the email service the subscription flow needs.
type Mailer interface {
	SendVerificationEmail(to, confirmURL string) error
}

type SubscriptionModule struct {
	db         *gorm.DB
	mailer     Mailer
	expireDays int
}

func NewSubscriptionModule(db *gorm.DB, mailer Mailer) *SubscriptionModule {
	expireDays := defaultExpireDays
	if v := os.Getenv("VERIFICATION_EXPIRE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			expireDays = n
		}
	}

	return &SubscriptionModule{
		db:         db,
		mailer:     mailer,
		expireDays: expireDays,
	}
}

// TokenExpired reports whether the subscriber's confirmation token is no
// longer usable: no verification email was ever sent, or the expiry
// window has passed since the last one.
func (s *SubscriptionModule) TokenExpired(sub *models.Subscriber) bool {
	if sub.VerificationSentDate == nil {
		return true
	}

	expiration := sub.VerificationSentDate.Add(time.Duration(s.expireDays) * 24 * time.Hour)
	return !expiration.After(time.Now())
}

// ResetToken replaces the subscriber's token with a fresh UUID,
// redrawing until it does not collide with any existing token.
func (s *SubscriptionModule) ResetToken(sub *models.Subscriber) error {
	token := uuid.New().String()

	for {
		var count int64
		if err := s.db.Model(&models.Subscriber{}).
			Where("token = ?", token).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			break
		}
		token = uuid.New().String()
	}

	sub.Token = token
	return s.db.Save(sub).Error
}

// Verify marks the subscriber as verified and subscribed. It only
// succeeds while the token has not expired.
func (s *SubscriptionModule) Verify(sub *models.Subscriber) (bool, error) {
	if s.TokenExpired(sub) {
		return false, nil
	}

	sub.Verified = true
	sub.Subscribed = true
	if err := s.db.Save(sub).Error; err != nil {
		return false, err
	}

	return true, nil
}

// Unsubscribe clears both the subscribed and verified flags. It is a
// no-op for subscribers that are not currently subscribed.
func (s *SubscriptionModule) Unsubscribe(sub *models.Subscriber) (bool, error) {
	if !sub.Subscribed {
		return false, nil
	}

	sub.Subscribed = false
	sub.Verified = false
	if err := s.db.Save(sub).Error; err != nil {
		return false, err
	}

	return true, nil
}

// SendVerificationEmail dispatches a confirmation email for the
// subscriber. Re-sends within the cooldown window are dropped. Unless
// the subscriber record was just created, the token is rotated first so
// previously mailed links stop working.
func (s *SubscriptionModule) SendVerificationEmail(sub *models.Subscriber, created bool) error {
	if sub.VerificationSentDate != nil &&
		time.Since(*sub.VerificationSentDate) < resendCooldown {
		return nil
	}

	if !created {
		if err := s.ResetToken(sub); err != nil {
			return err
		}
	}

	now := time.Now()
	sub.VerificationSentDate = &now
	if err := s.db.Save(sub).Error; err != nil {
		return err
	}

	if err := s.mailer.SendVerificationEmail(sub.EmailAddress, s.verificationURL(sub.Token)); err != nil {
		log.Printf("Error sending verification email to %s: %v", sub.EmailAddress, err)
		return err
	}

	return nil
}

func (s *SubscriptionModule) verificationURL(token string) string {
	domain := os.Getenv("DOMAIN")
	if domain == "" {
		domain = "http://localhost:8080"
	}
	return domain + "/newsletter/subscribe/confirm/" + token
}
