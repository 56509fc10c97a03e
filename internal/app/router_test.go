package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/service"
	"quizgen_gateway/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenIdentities 以 token 作为用户 id
type tokenIdentities struct{}

func (tokenIdentities) ValidateToken(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" || token == "bad" {
		return nil, util.ErrUnauthorized
	}
	return &model.Identity{ID: model.RemoteID(token)}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *service.StorageService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	storage := service.NewStorageServiceWithProvider(&service.LocalStorageProvider{Root: t.TempDir()})
	a := &App{services: &services{
		identity: service.NewIdentityService(tokenIdentities{}, time.Minute),
		storage:  storage,
	}}
	router := gin.New()
	a.registerRoutes(router, a.initControllers(a.services))
	return router, storage
}

func get(router http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutes_SwaggerIsPublic(t *testing.T) {
	router, _ := newTestRouter(t)

	w := get(router, "/swagger/doc.json", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Quizgen Gateway API")
}

func TestRoutes_MaterialsRequireOwner(t *testing.T) {
	router, storage := newTestRouter(t)

	urls, err := storage.ArchiveMaterials(context.Background(), "1", "job-1", []model.MaterialFile{
		{Name: "cells.pdf", ContentType: util.MimePDF, Data: []byte("%PDF-1.4 cells")},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"/api/materials/job-1/cells.pdf"}, urls)

	assert.Equal(t, http.StatusUnauthorized, get(router, urls[0], "").Code)
	assert.Equal(t, http.StatusNotFound, get(router, urls[0], "2").Code)

	w := get(router, urls[0], "1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4 cells", w.Body.String())

	assert.Equal(t, http.StatusNotFound, get(router, "/uploads/materials/1/job-1/cells.pdf", "1").Code)
}
