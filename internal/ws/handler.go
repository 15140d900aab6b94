package ws

import (
	"context"
	"time"

	socketio "github.com/googollee/go-socket.io"

	"ploxora/internal/auth"
	"ploxora/internal/model"
)

const historyLimit = 500

// History returns recent audit entries, newest first
type History interface {
	List(ctx context.Context, limit int) ([]*model.AuditEntry, error)
}

// handleRequestAudit replays audit entries newer than lastEventId
func (h *Hub) handleRequestAudit(s socketio.Conn, data interface{}) {
	if h.history == nil || !isAdmin(s) {
		s.Emit("error", map[string]interface{}{"message": "Audit history unavailable"})
		return
	}

	var lastEventID int64
	if m, ok := data.(map[string]interface{}); ok {
		if v, ok := m["lastEventId"].(float64); ok {
			lastEventID = int64(v)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	entries, err := h.history.List(ctx, historyLimit)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to load audit history")
		s.Emit("error", map[string]interface{}{"message": "Failed to query audit log"})
		return
	}

	items := Since(entries, lastEventID)
	var latest int64
	if len(entries) > 0 {
		latest = entries[0].ID
	}
	s.Emit("audit:initial", map[string]interface{}{
		"items":       items,
		"total":       len(items),
		"lastEventId": latest,
	})
}

// Since returns the entries with an id greater than lastEventID. Zero returns all.
func Since(entries []*model.AuditEntry, lastEventID int64) []*model.AuditEntry {
	out := make([]*model.AuditEntry, 0, len(entries))
	for _, e := range entries {
		if lastEventID == 0 || e.ID > lastEventID {
			out = append(out, e)
		}
	}
	return out
}

func isAdmin(s socketio.Conn) bool {
	claims, ok := s.Context().(*auth.Claims)
	return ok && claims.Admin()
}
