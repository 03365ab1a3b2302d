package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/atelierloop/gateway/internal/infrastructure/audit"
	"github.com/atelierloop/gateway/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturingAuditor struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (a *capturingAuditor) RecordAsync(_ context.Context, entry *audit.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func guardRouter(store auth.CapabilityStore, auditor AuditRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	admin := r.Group("/admin/:adminId")
	admin.Use(AdminGuard(store, auditor, zap.NewNop()))
	admin.GET("/dashboard", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestAdminGuardAcceptsCurrentSegment(t *testing.T) {
	store := auth.NewInMemoryCapabilityStore("seed-segment")
	r := guardRouter(store, &capturingAuditor{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/seed-segment/dashboard", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminGuardRejectsWrongSegment(t *testing.T) {
	store := auth.NewInMemoryCapabilityStore("seed-segment")
	auditor := &capturingAuditor{}
	r := guardRouter(store, auditor)

	for _, segment := range []string{"wrong", "SEED-SEGMENT", "seed-segment%20"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/"+segment+"/dashboard", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code, "segment %q", segment)
	}

	auditor.mu.Lock()
	defer auditor.mu.Unlock()
	require.Len(t, auditor.entries, 3)
	assert.Equal(t, audit.EventAdminPathRejected, auditor.entries[0].Event)
	assert.Equal(t, "wrong", auditor.entries[0].TargetID)
}

func TestAdminGuardRejectsStaleSegmentAfterRotation(t *testing.T) {
	store := auth.NewInMemoryCapabilityStore("seed-segment")
	rotated, err := store.Rotate(context.Background(), time.Hour)
	require.NoError(t, err)

	r := guardRouter(store, &capturingAuditor{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/seed-segment/dashboard", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/"+rotated+"/dashboard", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
