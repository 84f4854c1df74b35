package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderUnknownTemplateWritesNothing(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	err = engine.Render(rr, "pages/missing.html", TemplateData{})
	assert.Error(t, err)
	assert.Zero(t, rr.Body.Len())
}

func TestRenderStatus(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	require.NoError(t, engine.RenderStatus(rr, http.StatusNotFound, "pages/error.html", TemplateData{
		Title: "Not Found",
		Data:  map[string]any{"Message": "Division not found"},
	}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Division not found")
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
}

func TestNilEngine(t *testing.T) {
	var engine *Engine
	assert.Error(t, engine.Render(httptest.NewRecorder(), "pages/overview.html", TemplateData{}))
}
