package subscription

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"newsfeed/models"
)

type fakeMailer struct {
	recipients  []string
	confirmURLs []string
}

func (f *fakeMailer) SendVerificationEmail(to, confirmURL string) error {
	f.recipients = append(f.recipients, to)
	f.confirmURLs = append(f.confirmURLs, confirmURL)
	return nil
}

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.Subscriber{})
	return db
}

func createTestSubscriber(db *gorm.DB, email string, subscribed, verified bool, sentDate *time.Time) *models.Subscriber {
	sub := &models.Subscriber{
		EmailAddress:         email,
		Token:                uuid.New().String(),
		Subscribed:           subscribed,
		Verified:             verified,
		VerificationSentDate: sentDate,
	}
	db.Create(sub)
	return sub
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestTokenExpired_NoVerificationSent(t *testing.T) {
	db := setupTestDB()
	module := NewSubscriptionModule(db, &fakeMailer{})

	sub := createTestSubscriber(db, "test@test.com", false, false, nil)

	assert.True(t, module.TokenExpired(sub))
}

func TestTokenExpired_RecentlySent(t *testing.T) {
	db := setupTestDB()
	module := NewSubscriptionModule(db, &fakeMailer{})

	sub := createTestSubscriber(db, "test@test.com", false, false, timePtr(time.Now()))

	assert.False(t, module.TokenExpired(sub))
}

func TestTokenExpired_PastExpiryWindow(t *testing.T) {
	db := setupTestDB()
	module := NewSubscriptionModule(db, &fakeMailer{})

	sentDate := time.Now().Add(-4 * 24 * time.Hour)
	sub := createTestSubscriber(db, "test@test.com", false, false, &sentDate)

	assert.True(t, module.TokenExpired(sub))
}

func TestResetToken_ChangesAndPersistsToken(t *testing.T) {
	db := setupTestDB()
	module := NewSubscriptionModule(db, &fakeMailer{})

	sub := createTestSubscriber(db, "test@test.com", false, false, nil)
	oldToken := sub.Token

	err := module.ResetToken(sub)

	assert.NoError(t, err)
	assert.NotEqual(t, oldToken, sub.Token)

	var saved models.Subscriber
	db.First(&saved, sub.ID)
	assert.Equal(t, sub.Token, saved.Token)
}

func TestResetToken_NeverCollides(t *testing.T) {
	db := setupTestDB()
	module := NewSubscriptionModule(db, &fakeMailer{})

	subs := []*models.Subscriber{
		createTestSubscriber(db, "a@test.com", false, false, nil),
		createTestSubscriber(db, "b@test.com", false, false, nil),
		createTestSubscriber(db, "c@test.com", false, false, nil),
	}

	for _, sub := range subs {
		assert.NoError(t, module.ResetToken(sub))
	}

	seen := map[string]bool{}
	var all []models.Subscriber
	db.Find(&all)
	for _, sub := range all {
		assert.False(t, seen[sub.Token])
		seen[sub.Token] = true
	}
}

func TestVerify_Success(t *testing.T) {
	db := setupTestDB()
	module := NewSubscriptionModule(db, &fakeMailer{})

	sub := createTestSubscriber(db, "test@test.com", false, false, timePtr(time.Now()))

	ok, err := module.Verify(sub)

	assert.NoError(t, err)
	assert.True(t, ok)

	var saved models.Subscriber
	db.First(&saved, sub.ID)
	assert.True(t, saved.Verified)
	assert.True(t, saved.Subscribed)
}

func TestVerify_ExpiredToken(t *testing.T) {
	db := setupTestDB()
	module := NewSubscriptionModule(db, &fakeMailer{})

	sentDate := time.Now().Add(-4 * 24 * time.Hour)
	sub := createTestSubscriber(db, "test@test.com", false, false, &sentDate)

	ok, err := module.Verify(sub)

	assert.NoError(t, err)
	assert.False(t, ok)

	var saved models.Subscriber
	db.First(&saved, sub.ID)
	assert.False(t, saved.Verified)
	assert.False(t, saved.Subscribed)
}

func TestUnsubscribe_Success(t *testing.T) {
	db := setupTestDB()
	module := NewSubscriptionModule(db, &fakeMailer{})

	sub := createTestSubscriber(db, "test@test.com", true, true, nil)

	ok, err := module.Unsubscribe(sub)

	assert.NoError(t, err)
	assert.True(t, ok)

	var saved models.Subscriber
	db.First(&saved, sub.ID)
	assert.False(t, saved.Verified)
	assert.False(t, saved.Subscribed)
}

func TestUnsubscribe_NotSubscribed(t *testing.T) {
	db := setupTestDB()
	module := NewSubscriptionModule(db, &fakeMailer{})

	sub := createTestSubscriber(db, "test@test.com", false, true, nil)

	ok, err := module.Unsubscribe(sub)

	assert.NoError(t, err)
	assert.False(t, ok)

	var saved models.Subscriber
	db.First(&saved, sub.ID)
	assert.True(t, saved.Verified)
}

func TestSendVerificationEmail_ThrottledWithinCooldown(t *testing.T) {
	db := setupTestDB()
	mailer := &fakeMailer{}
	module := NewSubscriptionModule(db, mailer)

	sentDate := time.Now().Add(-1 * time.Minute)
	sub := createTestSubscriber(db, "test@test.com", false, false, &sentDate)
	oldToken := sub.Token

	err := module.SendVerificationEmail(sub, false)

	assert.NoError(t, err)
	assert.Empty(t, mailer.recipients)
	assert.Equal(t, oldToken, sub.Token)
}

func TestSendVerificationEmail_RotatesTokenForExistingSubscriber(t *testing.T) {
	db := setupTestDB()
	mailer := &fakeMailer{}
	module := NewSubscriptionModule(db, mailer)

	sentDate := time.Now().Add(-10 * time.Minute)
	sub := createTestSubscriber(db, "test@test.com", false, false, &sentDate)
	oldToken := sub.Token

	err := module.SendVerificationEmail(sub, false)

	assert.NoError(t, err)
	assert.Equal(t, []string{"test@test.com"}, mailer.recipients)
	assert.NotEqual(t, oldToken, sub.Token)
	assert.NotNil(t, sub.VerificationSentDate)
	assert.WithinDuration(t, time.Now(), *sub.VerificationSentDate, time.Minute)
}

func TestSendVerificationEmail_KeepsTokenForNewSubscriber(t *testing.T) {
	db := setupTestDB()
	mailer := &fakeMailer{}
	module := NewSubscriptionModule(db, mailer)

	sub := createTestSubscriber(db, "test@test.com", false, false, nil)
	oldToken := sub.Token

	err := module.SendVerificationEmail(sub, true)

	assert.NoError(t, err)
	assert.Equal(t, 1, len(mailer.recipients))
	assert.Equal(t, oldToken, sub.Token)
}

func TestSendVerificationEmail_ConfirmURLContainsToken(t *testing.T) {
	db := setupTestDB()
	mailer := &fakeMailer{}
	module := NewSubscriptionModule(db, mailer)

	sub := createTestSubscriber(db, "test@test.com", false, false, nil)

	err := module.SendVerificationEmail(sub, true)

	assert.NoError(t, err)
	assert.Equal(t, 1, len(mailer.confirmURLs))
	assert.Contains(t, mailer.confirmURLs[0], "/newsletter/subscribe/confirm/"+sub.Token)
}
