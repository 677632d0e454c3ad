package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Git-me-Harish/Video-KYC/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderPages(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	for _, page := range []string{"pages/login.html", "pages/register.html"} {
		rec := httptest.NewRecorder()
		require.NoError(t, engine.Render(rec, page, TemplateData{Title: "KYC"}))
		assert.Contains(t, rec.Body.String(), "<form", page)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	}

	rec := httptest.NewRecorder()
	require.NoError(t, engine.Render(rec, "pages/index.html", TemplateData{
		Title: "KYC",
		User:  &shared.Claim{UserID: "01H", Email: "a@x.com"},
	}))
	assert.Contains(t, rec.Body.String(), "a@x.com")
}

func TestRenderNilEngine(t *testing.T) {
	var engine *Engine
	assert.Error(t, engine.Render(httptest.NewRecorder(), "pages/login.html", TemplateData{}))
}
