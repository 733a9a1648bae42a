package newsfeed

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"newsfeed/models"
)

func (n *NewsfeedModule) sitemap(c *gin.Context) {
	domain := os.Getenv("DOMAIN")
	if domain == "" {
		domain = "http://localhost:8080"
	}
	domain = strings.TrimSuffix(domain, "/")

	var sitemap strings.Builder
	sitemap.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sitemap.WriteString("\n")
	sitemap.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	sitemap.WriteString("\n")

	sitemap.WriteString("  <url>\n")
	sitemap.WriteString("    <loc>" + domain + "/</loc>\n")
	sitemap.WriteString("    <changefreq>weekly</changefreq>\n")
	sitemap.WriteString("    <priority>1.0</priority>\n")
	sitemap.WriteString("  </url>\n")

	sitemap.WriteString("  <url>\n")
	sitemap.WriteString("    <loc>" + domain + "/newsletter/subscribe</loc>\n")
	sitemap.WriteString("    <changefreq>monthly</changefreq>\n")
	sitemap.WriteString("    <priority>0.5</priority>\n")
	sitemap.WriteString("  </url>\n")

	// only published issues are listed
	var issues []models.Issue
	n.db.Where("is_draft = ? AND publish_date <= ?", false, time.Now()).
		Order("publish_date DESC").
		Order("issue_number DESC").
		Find(&issues)

	for _, issue := range issues {
		sitemap.WriteString("  <url>\n")
		sitemap.WriteString("    <loc>" + domain + "/issues/" + strconv.Itoa(issue.IssueNumber) + "</loc>\n")
		sitemap.WriteString("    <lastmod>" + issue.UpdatedAt.Format(time.RFC3339) + "</lastmod>\n")
		sitemap.WriteString("    <changefreq>monthly</changefreq>\n")
		sitemap.WriteString("    <priority>0.8</priority>\n")
		sitemap.WriteString("  </url>\n")
	}

	sitemap.WriteString("</urlset>\n")

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, sitemap.String())
}
