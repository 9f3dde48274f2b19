// Package webfrontend is a stand-in for the Host 'n Code web frontend. It
// serves the public pages and a health endpoint so the harness has a real
// HTTP resource to launch.
package webfrontend

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const HealthPath = "/health"

type page struct {
	path    string
	title   string
	heading string
	body    string
}

var pages = []page{
	{
		path:    "/",
		title:   "Home",
		heading: "Welcome to Host 'n Code",
		body:    "<p>Hosting, cloud and software development for growing teams.</p>",
	},
	{
		path:    "/services",
		title:   "Services",
		heading: "Our Technology Services",
		body: `<ul>
      <li>Managed hosting</li>
      <li>Cloud migration</li>
      <li>Custom software development</li>
    </ul>`,
	},
	{
		path:    "/about",
		title:   "About",
		heading: "About Host 'n Code",
		body:    "<p>A small team of engineers who like keeping things running.</p>",
	},
}

const layout = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <title>%s - Host 'n Code</title>
  </head>
  <body>
    <nav><a href="/">Home</a> <a href="/services">Services</a> <a href="/about">About</a></nav>
    <h1>%s</h1>
    %s
  </body>
</html>
`

// RegisterHandlers adds the pages and the health endpoint to router.
func RegisterHandlers(router gin.IRouter) {
	for _, p := range pages {
		content := []byte(fmt.Sprintf(layout, p.title, p.heading, p.body))
		router.GET(p.path, func(c *gin.Context) {
			c.Data(http.StatusOK, "text/html; charset=utf-8", content)
		})
	}

	router.GET(HealthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
}
