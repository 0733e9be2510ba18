package ginserver

import (
	_ "embed"
	"net/http"
	"path"
	"strings"

	gin "github.com/gin-gonic/gin"
)

// openAPIDocument describes the /api surface; its servers entry is "/api".
//
//go:embed swagger/openapi.json
var openAPIDocument []byte

//go:embed swagger/index.html
var swaggerUITemplate string

// registerDocsRoutes mounts the OpenAPI document and a Swagger UI page under
// the API group, so both live next to the endpoints they describe.
func registerDocsRoutes(api *gin.RouterGroup) {
	docURL := path.Join(api.BasePath(), "swagger", "doc.json")
	page := []byte(strings.ReplaceAll(swaggerUITemplate, "{{SPEC_URL}}", docURL))

	api.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPIDocument)
	})
	api.GET("/swagger", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
	})
}
