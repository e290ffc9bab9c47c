package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mautops/review-gin/docs"
	"github.com/mautops/review-gin/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwaggerFilesExist(t *testing.T) {
	docsDir := filepath.Join("..", "..", "docs")
	assert.FileExists(t, filepath.Join(docsDir, "swagger.json"))
	assert.FileExists(t, filepath.Join(docsDir, "swagger.yaml"))
	assert.FileExists(t, filepath.Join(docsDir, "docs.go"))
}

func TestSwaggerRoute(t *testing.T) {
	r := api.SetupRoutes(api.RouterOptions{})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		BasePath string                     `json:"basePath"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, docs.SwaggerInfo.Title, doc.Info.Title)
	assert.Equal(t, "/api/v1", doc.BasePath)
	for _, path := range []string{
		"/submissions",
		"/submissions/{id}/submit",
		"/submissions/{id}/first-review",
		"/submissions/{id}/second-review",
		"/inbox",
		"/dashboard",
	} {
		assert.Contains(t, doc.Paths, path)
	}
}

func TestSwaggerJSONMatchesTemplate(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "docs", "swagger.json"))
	require.NoError(t, err)

	var file, served map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &file))
	require.NoError(t, json.Unmarshal([]byte(docs.SwaggerInfo.ReadDoc()), &served))
	assert.Equal(t, file["paths"], served["paths"])
	assert.Equal(t, file["definitions"], served["definitions"])
}
