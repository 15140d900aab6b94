// Package request holds the binding helpers shared by the API handlers.
package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ploxora/internal/httpx"
)

// Int accepts a JSON number or a numeric string, as sent by HTML forms
type Int int

func (i *Int) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*i = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*i = Int(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return fmt.Errorf("invalid integer %s", data)
	}
	*i = Int(n)
	return nil
}

// Bool accepts a JSON boolean or a form value such as "on" or "true"
type Bool bool

func (b *Bool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "on", "true", "1", "yes":
			*b = true
		default:
			*b = false
		}
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*b = Bool(v)
	return nil
}

// BindJSON decodes the body into out. On failure it writes a 400 and returns false.
func BindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// idBody carries a target id in the body, as the legacy endpoints send it
type idBody struct {
	ID       string `json:"id"`
	NodeID   string `json:"nodeId"`
	ServerID string `json:"serverId"`
	UserID   string `json:"userId"`
}

// ID returns the :id path parameter, falling back to an id field in the JSON body.
// It writes a 400 and returns false when neither is present.
func ID(c *gin.Context) (string, bool) {
	if id := c.Param("id"); id != "" {
		return id, true
	}
	var body idBody
	_ = c.ShouldBindJSON(&body)
	for _, id := range []string{body.ID, body.NodeID, body.ServerID, body.UserID} {
		if id = strings.TrimSpace(id); id != "" {
			return id, true
		}
	}
	httpx.FailErr(c, httpx.ErrParamMissing("id is required"))
	return "", false
}
