// Package example is the sample addon shipped with the panel.
package example

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ploxora/internal/addons"
	"ploxora/internal/httpx"
)

// Folder is the addon folder name under ADDONS_DIR
const Folder = "example_plugin"

// Greeting is the body served on the server page route
const Greeting = "Hello from Example Plugin!"

// Plugin is the example addon
type Plugin struct {
	appName string
	logger  *logrus.Entry
}

// New creates the example addon
func New(appName string, logger *logrus.Entry) *Plugin {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Plugin{appName: appName, logger: logger.WithField("addon", Folder)}
}

func (p *Plugin) Info() addons.Info {
	return addons.Info{
		Name:        "Example Plugin",
		Version:     "1.0.0",
		Author:      "Ploxora",
		Description: "A sample addon showing how to add pages to the panel",
		Sidebar:     []addons.SidebarItem{{Name: "Example", Link: "/example"}},
		Status:      addons.StatusEnabled,
	}
}

func (p *Plugin) Init() error {
	p.logger.Info("Example Plugin initialized")
	return nil
}

func (p *Plugin) Routes(r gin.IRouter) {
	r.GET("/example", func(c *gin.Context) {
		httpx.OK(c, gin.H{"name": p.appName})
	})
	r.GET("/vps/:containerId/example", func(c *gin.Context) {
		c.String(http.StatusOK, Greeting)
	})
}
