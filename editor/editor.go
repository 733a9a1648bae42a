package editor

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"newsfeed/models"
)

// EditorModule handles editor sign-in. Logged-in editors can preview
// draft issues; content curation itself happens outside this app.
type EditorModule struct {
	db *gorm.DB
}

func NewEditorModule(db *gorm.DB) *EditorModule {
	return &EditorModule{db: db}
}

func (e *EditorModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/editor/login", e.loginPage)
	router.POST("/editor/login", e.loginPost)
	router.GET("/editor/logout", e.logout)
}

// EnsureDefaultEditor creates the editor account configured through
// EDITOR_EMAIL / EDITOR_PASSWORD if it does not exist yet.
func (e *EditorModule) EnsureDefaultEditor() error {
	email := os.Getenv("EDITOR_EMAIL")
	password := os.Getenv("EDITOR_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	var existing models.Editor
	if err := e.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	editor := models.Editor{Email: email, PasswordHash: hash}
	if err := e.db.Create(&editor).Error; err != nil {
		return err
	}

	log.Printf("Created editor account for %s", email)
	return nil
}

func (e *EditorModule) loginPage(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get("editor_id") != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.HTML(http.StatusOK, "editor_login.html", gin.H{})
}

func (e *EditorModule) loginPost(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	var editor models.Editor
	if err := e.db.Where("email = ?", email).First(&editor).Error; err != nil {
		c.HTML(http.StatusUnauthorized, "editor_login.html", gin.H{
			"error": "Invalid email or password",
			"email": email,
		})
		return
	}

	if !checkPasswordHash(password, editor.PasswordHash) {
		c.HTML(http.StatusUnauthorized, "editor_login.html", gin.H{
			"error": "Invalid email or password",
			"email": email,
		})
		return
	}

	session := sessions.Default(c)
	session.Set("editor_id", editor.ID)
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

func (e *EditorModule) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
