package subscription

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"newsfeed/models"
)

// User-facing messages, shared between the form and AJAX variants.
const (
	msgSubscribed = "Thank you for subscribing! " +
		"Please check your email inbox to confirm " +
		"your subscription to start receiving newsletters."
	msgAlreadySubscribed = "You have already subscribed to the newsletter."
	msgUnsubscribed      = "You have successfully unsubscribed from the newsletter."
	msgNoSubscriber      = "Subscriber with this email address does not exist."
	msgInvalidEmail      = "Enter a valid email address."
)

type emailForm struct {
	EmailAddress string `form:"email_address" binding:"required,email"`
}

func (s *SubscriptionModule) RegisterRoutes(router *gin.Engine) {
	newsletterGroup := router.Group("/newsletter")
	{
		newsletterGroup.GET("/subscribe", s.subscribePage)
		newsletterGroup.POST("/subscribe", s.subscribePost)
		newsletterGroup.GET("/subscribe/confirm/:token", s.subscribeConfirm)
		newsletterGroup.GET("/unsubscribe", s.unsubscribePage)
		newsletterGroup.POST("/unsubscribe", s.unsubscribePost)
	}
}

// isAJAX detects the XMLHttpRequest variants of the subscribe and
// unsubscribe endpoints.
func isAJAX(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

func (s *SubscriptionModule) subscribePage(c *gin.Context) {
	c.HTML(http.StatusOK, "newsletter_subscribe.html", gin.H{})
}

func (s *SubscriptionModule) subscribePost(c *gin.Context) {
	var form emailForm
	if err := c.ShouldBind(&form); err != nil {
		s.invalidEmail(c, "newsletter_subscribe.html")
		return
	}

	var sub models.Subscriber
	err := s.db.Where("email_address = ?", form.EmailAddress).First(&sub).Error

	created := false
	switch {
	case err == nil && sub.Subscribed:
		s.respond(c, false, msgAlreadySubscribed)
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = models.Subscriber{
			EmailAddress: form.EmailAddress,
			Token:        uuid.New().String(),
		}
		if err := s.db.Create(&sub).Error; err != nil {
			s.serverError(c, "newsletter_subscribe.html", form.EmailAddress)
			return
		}
		created = true
	case err != nil:
		s.serverError(c, "newsletter_subscribe.html", form.EmailAddress)
		return
	}

	// Errors are logged inside; the visitor still gets the success
	// message and can request a re-send after the cooldown.
	s.SendVerificationEmail(&sub, created)

	s.respond(c, true, msgSubscribed)
}

func (s *SubscriptionModule) unsubscribePage(c *gin.Context) {
	c.HTML(http.StatusOK, "newsletter_unsubscribe.html", gin.H{})
}

func (s *SubscriptionModule) unsubscribePost(c *gin.Context) {
	var form emailForm
	if err := c.ShouldBind(&form); err != nil {
		s.invalidEmail(c, "newsletter_unsubscribe.html")
		return
	}

	var sub models.Subscriber
	err := s.db.Where("email_address = ? AND subscribed = ?", form.EmailAddress, true).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.respond(c, false, msgNoSubscriber)
		return
	}
	if err != nil {
		s.serverError(c, "newsletter_unsubscribe.html", form.EmailAddress)
		return
	}

	if _, err := s.Unsubscribe(&sub); err != nil {
		s.serverError(c, "newsletter_unsubscribe.html", form.EmailAddress)
		return
	}

	s.respond(c, true, msgUnsubscribed)
}

func (s *SubscriptionModule) subscribeConfirm(c *gin.Context) {
	token := c.Param("token")

	// Tokens of already verified subscribers are treated as unknown.
	var sub models.Subscriber
	err := s.db.Where("token = ? AND verified = ?", token, false).First(&sub).Error
	if err != nil {
		c.HTML(http.StatusNotFound, "newsletter_subscription_confirm.html", gin.H{
			"subscribed": false,
		})
		return
	}

	subscribed, err := s.Verify(&sub)
	if err != nil || !subscribed {
		c.HTML(http.StatusNotFound, "newsletter_subscription_confirm.html", gin.H{
			"subscribed": false,
		})
		return
	}

	c.HTML(http.StatusOK, "newsletter_subscription_confirm.html", gin.H{
		"subscribed": true,
		"email":      sub.EmailAddress,
	})
}

// respond delivers the outcome message either as JSON (AJAX) or as a
// flash message followed by a redirect to the issue list.
func (s *SubscriptionModule) respond(c *gin.Context, success bool, message string) {
	if isAJAX(c) {
		c.JSON(http.StatusOK, gin.H{
			"success": success,
			"message": message,
		})
		return
	}

	session := sessions.Default(c)
	session.AddFlash(message)
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

func (s *SubscriptionModule) invalidEmail(c *gin.Context, tmpl string) {
	if isAJAX(c) {
		c.JSON(http.StatusBadRequest, gin.H{
			"email_address": []string{msgInvalidEmail},
		})
		return
	}

	c.HTML(http.StatusOK, tmpl, gin.H{
		"error": msgInvalidEmail,
		"email": c.PostForm("email_address"),
	})
}

func (s *SubscriptionModule) serverError(c *gin.Context, tmpl, email string) {
	if isAJAX(c) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Something went wrong. Please try again later.",
		})
		return
	}

	c.HTML(http.StatusInternalServerError, tmpl, gin.H{
		"error": "Something went wrong. Please try again later.",
		"email": email,
	})
}
