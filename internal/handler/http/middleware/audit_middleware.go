// File: backend/services/impersonation-service/internal/handler/http/middleware/audit_middleware.go
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/service"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/utils/sanitize"
)

const maxAuditedBodyBytes = 64 * 1024

// bodyCaptureWriter tees the response body so the audit entry can derive a
// coarse outcome summary after the handler finishes.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// AuditTrail records an api_call audit entry for every request made by an
// impersonating principal. The entry is enqueued after the response body is
// finalized and never blocks or fails the response itself. Paths matching the
// skip list are excluded to avoid self-referential noise; session lifecycle
// entries are written by the session manager regardless of this list.
func AuditTrail(sink service.AuditSink, skipEndpoints []string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok || !claims.IsImpersonating || claims.ImpersonationSessionID == "" {
			c.Next()
			return
		}

		if matchesSkipList(c.Request.URL.Path, skipEndpoints) {
			c.Next()
			return
		}

		// The body is consumed for sanitization and restored for the handler.
		var rawBody []byte
		if c.Request.Body != nil {
			limited := io.LimitReader(c.Request.Body, maxAuditedBodyBytes)
			if read, err := io.ReadAll(limited); err == nil {
				rawBody = read
				c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))
			}
		}

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		startTime := time.Now()

		c.Next()

		durationMs := time.Since(startTime).Milliseconds()
		status := writer.Status()
		summary := responseSummary(writer.body.Bytes())

		entry := &entity.AuditLogEntry{
			SessionID:            claims.ImpersonationSessionID,
			AdminID:              claims.AdminID,
			ImpersonatedClientID: claims.ClientID,
			ActionType:           entity.AuditActionAPICall,
			Endpoint:             c.Request.Method + " " + c.FullPath(),
			Method:               c.Request.Method,
			RequestPath:          c.Request.URL.RequestURI(),
			RequestBodySanitized: sanitize.Body(rawBody),
			ResponseStatus:       &status,
			ResponseSummary:      &summary,
			DurationMs:           &durationMs,
		}
		if ip := c.ClientIP(); ip != "" {
			entry.IPAddress = &ip
		}
		if ua := c.Request.UserAgent(); ua != "" {
			entry.UserAgent = &ua
		}

		sink.Record(entry)
	}
}

func matchesSkipList(path string, skipEndpoints []string) bool {
	for _, endpoint := range skipEndpoints {
		if strings.Contains(path, endpoint) {
			return true
		}
	}
	return false
}

// responseSummary derives the coarse outcome of a response from its body:
// "success" when the envelope reports success, the error string when it
// reports failure, "unknown" for anything else.
func responseSummary(body []byte) string {
	var envelope struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Success == nil {
		return "unknown"
	}
	if *envelope.Success {
		return "success"
	}
	if envelope.Error != "" {
		return envelope.Error
	}
	return "error"
}
