package handler

import (
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/wakscord-crawler/models"
)

// Static returns a NoRoute handler serving files from dir at their relative
// paths. Directories are served only through their index.html; anything
// else that is missing gets a JSON 404.
func Static(dir string) gin.HandlerFunc {
	fs := gin.Dir(dir, false)
	fileServer := http.FileServer(fs)

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			notFound(c)
			return
		}

		name := path.Clean("/" + c.Request.URL.Path)
		if !servable(fs, name) {
			notFound(c)
			return
		}
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}

// servable reports whether name is a regular file, or a directory holding
// an index.html.
func servable(fs http.FileSystem, name string) bool {
	f, err := fs.Open(name)
	if err != nil {
		return false
	}
	stat, err := f.Stat()
	f.Close()
	if err != nil {
		return false
	}
	if !stat.IsDir() {
		return true
	}
	return servable(fs, path.Join(name, "index.html"))
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:     http.StatusText(http.StatusNotFound),
		Message:   "no route or static file for " + c.Request.URL.Path,
		Timestamp: models.Timestamp(time.Now()),
	})
}
