package newsfeed

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"

	"newsfeed/models"
)

// issues shown per page on the issue list
const pageSize = 15

type NewsfeedModule struct {
	db *gorm.DB
}

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,     // tables, strikethrough, task lists, autolinks (GFM set)
		extension.Linkify, // linkify raw URLs
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(), // allow raw HTML passthrough in Markdown
	),
)

// CategorySection groups an issue's visible posts under their category
// for the detail template.
type CategorySection struct {
	Category *models.PostCategory
	Posts    []models.Post
}

func NewNewsfeedModule(db *gorm.DB) *NewsfeedModule {
	return &NewsfeedModule{db: db}
}

func (n *NewsfeedModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", n.index)
	router.GET("/issues/:issueNumber", n.detail)
	router.GET("/sitemap.xml", n.sitemap)
}

// publishedIssues returns one page of published issues plus the total
// page count. Published means not a draft and publish date in the past,
// newest first.
func (n *NewsfeedModule) publishedIssues(page int) ([]models.Issue, int, error) {
	if page < 1 {
		page = 1
	}

	query := n.db.Model(&models.Issue{}).
		Where("is_draft = ? AND publish_date <= ?", false, time.Now())

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	totalPages := int((total + pageSize - 1) / pageSize)

	var issues []models.Issue
	err := query.
		Order("publish_date DESC").
		Order("issue_number DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&issues).Error

	return issues, totalPages, err
}

// visiblePosts returns the issue's visible posts with their categories
// preloaded, ordered by post order then newest first.
func (n *NewsfeedModule) visiblePosts(issueID uint) ([]models.Post, error) {
	var posts []models.Post
	err := n.db.Preload("Category").
		Where("issue_id = ? AND is_visible = ?", issueID, true).
		Order("`order` ASC").
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}

// groupByCategory splits an ordered post list into category sections,
// sections sorted by category display order with uncategorized posts
// last. Post order within a section is preserved.
func groupByCategory(posts []models.Post) []CategorySection {
	var sections []CategorySection
	index := map[uint]int{}
	uncategorized := -1

	for _, post := range posts {
		if post.Category == nil {
			if uncategorized == -1 {
				sections = append(sections, CategorySection{})
				uncategorized = len(sections) - 1
			}
			sections[uncategorized].Posts = append(sections[uncategorized].Posts, post)
			continue
		}

		i, ok := index[post.Category.ID]
		if !ok {
			sections = append(sections, CategorySection{Category: post.Category})
			i = len(sections) - 1
			index[post.Category.ID] = i
		}
		sections[i].Posts = append(sections[i].Posts, post)
	}

	// insertion sort by category order, stable for equal orders
	for i := 1; i < len(sections); i++ {
		for j := i; j > 0 && sectionOrder(sections[j]) < sectionOrder(sections[j-1]); j-- {
			sections[j], sections[j-1] = sections[j-1], sections[j]
		}
	}

	return sections
}

func sectionOrder(s CategorySection) int {
	if s.Category == nil {
		return int(^uint(0) >> 1) // uncategorized sorts last
	}
	return s.Category.Order
}

func (n *NewsfeedModule) index(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	issues, totalPages, err := n.publishedIssues(page)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "newsfeed_error.html", gin.H{
			"error": "Error loading issues",
		})
		return
	}

	// flash messages left by the subscribe/unsubscribe flows
	session := sessions.Default(c)
	messages := session.Flashes()
	session.Save()

	c.HTML(http.StatusOK, "issue_list.html", gin.H{
		"issues":     issues,
		"messages":   messages,
		"page":       page,
		"totalPages": totalPages,
		"hasPrev":    page > 1,
		"hasNext":    page < totalPages,
		"prevPage":   page - 1,
		"nextPage":   page + 1,
	})
}

func (n *NewsfeedModule) detail(c *gin.Context) {
	issueNumber, err := strconv.Atoi(c.Param("issueNumber"))
	if err != nil {
		c.HTML(http.StatusNotFound, "newsfeed_error.html", gin.H{
			"error": "Issue not found",
		})
		return
	}

	var issue models.Issue
	if err := n.db.Where("issue_number = ?", issueNumber).First(&issue).Error; err != nil {
		c.HTML(http.StatusNotFound, "newsfeed_error.html", gin.H{
			"error": "Issue not found",
		})
		return
	}

	// drafts and future issues are only visible to logged-in editors
	if !issue.IsPublished() && !isEditor(c) {
		c.HTML(http.StatusNotFound, "newsfeed_error.html", gin.H{
			"error": "Issue not found",
		})
		return
	}

	posts, err := n.visiblePosts(issue.ID)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "newsfeed_error.html", gin.H{
			"error": "Error loading posts",
		})
		return
	}

	c.HTML(http.StatusOK, "issue_detail.html", gin.H{
		"issue":           issue,
		"sections":        groupByCategory(posts),
		"descriptionHTML": template.HTML(renderMarkdown(issue.ShortDescription)),
	})
}

func isEditor(c *gin.Context) bool {
	session := sessions.Default(c)
	return session.Get("editor_id") != nil
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		// on conversion errors, fall back to the raw content
		return content
	}
	return buf.String()
}
