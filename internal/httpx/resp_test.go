package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"ploxora/internal/errs"
)

func serve(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/test", handler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	var body map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return w, body
}

func TestOK(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		OK(c, gin.H{"name": "node-1"})
	})
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if string(body["code"]) != "0" || string(body["message"]) != `"success"` || string(body["data"]) != `{"name":"node-1"}` {
		t.Errorf("unexpected envelope %s", w.Body.String())
	}
}

func TestOKMsg(t *testing.T) {
	_, body := serve(t, func(c *gin.Context) {
		OKMsg(c, "server created", nil)
	})
	if string(body["message"]) != `"server created"` || string(body["data"]) != "null" {
		t.Errorf("unexpected envelope %v", body)
	}
}

func TestOKList(t *testing.T) {
	tests := []struct {
		name  string
		items any
		want  string
	}{
		{"slice", []string{"a", "b"}, `{"items":["a","b"],"total":2}`},
		{"empty", []int{}, `{"items":[],"total":0}`},
		{"nil slice", []string(nil), `{"items":[],"total":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, body := serve(t, func(c *gin.Context) {
				OKList(c, tt.items)
			})
			if string(body["data"]) != tt.want {
				t.Errorf("data = %s, want %s", body["data"], tt.want)
			}
		})
	}
}

func TestError_HidesCause(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		Error(c, fmt.Errorf("query failed: %w", errors.New("password=hunter2")))
	})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	if string(body["message"]) != `"internal error"` {
		t.Errorf("Expected generic message, got %s", body["message"])
	}
}

func TestError_DomainSentinel(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		Error(c, fmt.Errorf("no free allocation 3000 on node n1: %w", errs.ErrAllocationUnavailable))
	})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
	if string(body["code"]) != fmt.Sprint(CodeAllocationUnavailable) {
		t.Errorf("unexpected code %s", body["code"])
	}
}
