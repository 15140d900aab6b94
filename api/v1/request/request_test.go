package request

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{`4`, 4, false},
		{`"8"`, 8, false},
		{`" 16 "`, 16, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
		{`true`, 0, true},
		{`3000.0`, 3000, false},
		{`3000.9`, 0, true},
		{`-0.5`, 0, true},
		{`1e20`, 0, true},
	}
	for _, tt := range tests {
		var v struct {
			N Int `json:"n"`
		}
		err := json.Unmarshal([]byte(`{"n":`+tt.in+`}`), &v)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && int(v.N) != tt.want {
			t.Errorf("%s: got %d, want %d", tt.in, v.N, tt.want)
		}
	}
}

func TestBool(t *testing.T) {
	tests := map[string]bool{`true`: true, `false`: false, `"on"`: true, `"true"`: true, `"off"`: false, `""`: false, `null`: false}
	for in, want := range tests {
		var v struct {
			B Bool `json:"b"`
		}
		if err := json.Unmarshal([]byte(`{"b":`+in+`}`), &v); err != nil {
			t.Errorf("%s: %v", in, err)
			continue
		}
		if bool(v.B) != want {
			t.Errorf("%s: got %v, want %v", in, v.B, want)
		}
	}
}

func TestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := func(c *gin.Context) {
		if id, ok := ID(c); ok {
			c.String(http.StatusOK, id)
		}
	}
	r.POST("/by-path/:id", handler)
	r.POST("/by-body", handler)

	tests := []struct {
		name string
		path string
		body string
		code int
		want string
	}{
		{"path", "/by-path/abc", "", http.StatusOK, "abc"},
		{"node id", "/by-body", `{"nodeId":"n1"}`, http.StatusOK, "n1"},
		{"server id", "/by-body", `{"serverId":"s1"}`, http.StatusOK, "s1"},
		{"user id", "/by-body", `{"userId":"u1"}`, http.StatusOK, "u1"},
		{"missing", "/by-body", `{}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d", w.Code, tt.code)
			}
			if tt.want != "" && w.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.want)
			}
		})
	}
}
