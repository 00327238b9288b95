package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"fiber-monitor/database"
	"fiber-monitor/logger"
	"fiber-monitor/models/record"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Monitor captures one record per observed request. Its configuration is
// fixed at construction; the handler itself holds no mutable state.
type Monitor struct {
	store        *database.Store
	excludePaths []string
}

// NewMonitor builds a Monitor writing to the given store. Requests whose
// path starts with any of excludePaths pass through untouched.
func NewMonitor(store *database.Store, excludePaths []string) *Monitor {
	return &Monitor{
		store:        store,
		excludePaths: append([]string(nil), excludePaths...),
	}
}

// Handler returns the capture middleware. It never alters what the caller
// receives: response bytes are identical, returned errors flow through
// unchanged and panics are re-raised after the record is written.
func (m *Monitor) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, prefix := range m.excludePaths {
			if strings.HasPrefix(path, prefix) {
				return c.Next()
			}
		}

		start := time.Now()
		rec := record.Record{
			RequestID:   requestID(c),
			Timestamp:   float64(start.UnixMicro()) / 1e6,
			Method:      c.Method(),
			Path:        path,
			QueryParams: string(c.Request().URI().QueryString()),
			ClientIP:    optional(c.IP()),
			UserAgent:   optional(c.Get(fiber.HeaderUserAgent)),
			Headers:     encodeHeaders(&c.Request().Header),
			RequestSize: requestSize(c),
		}
		c.Set(fiber.HeaderXRequestID, rec.RequestID)

		switch rec.Method {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
			rec.RequestBody = textBody(c.Body())
		}

		var downstreamErr error
		var panicVal interface{}
		func() {
			defer func() {
				if r := recover(); r != nil {
					panicVal = r
					rec.ErrorInfo = encodeErrorInfo(record.ErrorInfo{
						ErrorType:    fmt.Sprintf("%T", r),
						ErrorMessage: fmt.Sprint(r),
						Traceback:    string(debug.Stack()),
					})
				}
			}()
			downstreamErr = c.Next()
		}()

		switch {
		case panicVal != nil:
			rec.StatusCode = fiber.StatusInternalServerError
		case downstreamErr != nil:
			rec.StatusCode = fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(downstreamErr, &fiberErr) {
				rec.StatusCode = fiberErr.Code
			}
			rec.ErrorInfo = encodeErrorInfo(record.ErrorInfo{
				ErrorType:    fmt.Sprintf("%T", downstreamErr),
				ErrorMessage: downstreamErr.Error(),
			})
		default:
			rec.StatusCode = c.Response().StatusCode()
			rec.ResponseHeaders = encodeHeaders(&c.Response().Header)
			contentType := string(c.Response().Header.ContentType())
			if strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) ||
				strings.HasPrefix(contentType, "text/") {
				// Body() drains any body stream into the response buffer,
				// so the caller still receives the full payload.
				body := c.Response().Body()
				rec.ResponseBody = textBody(body)
				rec.ResponseSize = len(body)
			}
		}

		rec.ResponseTime = float64(time.Since(start)) / float64(time.Millisecond)

		// A failed write loses this record but must never replace the real
		// response or swallow the downstream fault.
		if err := m.store.Save(&rec); err != nil {
			logger.Error("Failed to store monitor record", err)
		}

		if panicVal != nil {
			panic(panicVal)
		}
		return downstreamErr
	}
}

func requestID(c *fiber.Ctx) string {
	if id := c.Get(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}

func requestSize(c *fiber.Ctx) int {
	if size := c.Request().Header.ContentLength(); size > 0 {
		return size
	}
	return 0
}

// textBody returns the body as UTF-8 text, or nil when it is empty or not
// decodable as text.
func textBody(body []byte) *string {
	if len(body) == 0 || !utf8.Valid(body) {
		return nil
	}
	s := string(body)
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type headerVisitor interface {
	VisitAll(f func(key, value []byte))
}

func encodeHeaders(h headerVisitor) *string {
	headers := make(map[string]string)
	h.VisitAll(func(key, value []byte) {
		headers[string(key)] = string(value)
	})
	if len(headers) == 0 {
		return nil
	}
	data, err := json.Marshal(headers)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

func encodeErrorInfo(info record.ErrorInfo) *string {
	data, err := json.Marshal(info)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}
