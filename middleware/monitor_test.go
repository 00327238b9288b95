package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"fiber-monitor/database"
	"fiber-monitor/models/record"
	"fiber-monitor/types"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func newMonitorApp(t *testing.T) (*fiber.App, *database.Store) {
	t.Helper()
	db, err := database.InitDB(filepath.Join(t.TempDir(), "monitor.db"))
	if err != nil {
		t.Fatal(err)
	}
	store := database.NewStore(db)

	app := fiber.New()
	app.Use(recover.New())
	app.Use(NewMonitor(store, []string{"/monitor"}).Handler())
	return app, store
}

func storedRecords(t *testing.T, store *database.Store) []types.RecordView {
	t.Helper()
	views, err := store.RecentRequests(100, 0)
	if err != nil {
		t.Fatal(err)
	}
	return views
}

func decodeErrorInfo(t *testing.T, encoded *string) record.ErrorInfo {
	t.Helper()
	if encoded == nil {
		t.Fatal("expected error info")
	}
	var info record.ErrorInfo
	if err := json.Unmarshal([]byte(*encoded), &info); err != nil {
		t.Fatal(err)
	}
	return info
}

func TestMonitorRecordsRequest(t *testing.T) {
	app, store := newMonitorApp(t)
	app.Get("/hello", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "hello"})
	})

	req := httptest.NewRequest("GET", "/hello?name=go", nil)
	req.Header.Set("User-Agent", "monitor-test")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "hello") {
		t.Errorf("response body altered by monitor: %s", body)
	}
	if resp.Header.Get(fiber.HeaderXRequestID) == "" {
		t.Error("expected an X-Request-ID response header")
	}

	records := storedRecords(t, store)
	if len(records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records))
	}
	rec := records[0]
	if rec.Method != "GET" || rec.Path != "/hello" {
		t.Errorf("unexpected method/path: %s %s", rec.Method, rec.Path)
	}
	if rec.QueryParams != "name=go" {
		t.Errorf("unexpected query params: %q", rec.QueryParams)
	}
	if rec.StatusCode != fiber.StatusOK {
		t.Errorf("expected status 200, got %d", rec.StatusCode)
	}
	if rec.ResponseTime < 0 {
		t.Errorf("negative response time: %f", rec.ResponseTime)
	}
	if rec.ResponseBody == nil || !strings.Contains(*rec.ResponseBody, "hello") {
		t.Error("expected the JSON response body to be captured")
	}
	if rec.UserAgent == nil || *rec.UserAgent != "monitor-test" {
		t.Error("expected the user agent to be captured")
	}
	if rec.Headers == nil {
		t.Error("expected request headers to be captured")
	}
	if rec.RequestID != resp.Header.Get(fiber.HeaderXRequestID) {
		t.Error("expected the stored request id to match the response header")
	}
	if rec.ErrorInfo != nil {
		t.Error("expected no error info on the success path")
	}
}

func TestMonitorSkipsExcludedPaths(t *testing.T) {
	app, store := newMonitorApp(t)
	app.Get("/monitor/api/stats", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/monitor/api/stats", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("excluded route must be served untouched, got %d", resp.StatusCode)
	}
	if records := storedRecords(t, store); len(records) != 0 {
		t.Errorf("expected zero records for an excluded path, got %d", len(records))
	}
}

func TestMonitorCapturesRequestBody(t *testing.T) {
	app, store := newMonitorApp(t)
	app.Post("/echo", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	payload := `{"name":"test"}`
	req := httptest.NewRequest("POST", "/echo", strings.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if _, err := app.Test(req); err != nil {
		t.Fatal(err)
	}

	records := storedRecords(t, store)
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	rec := records[0]
	if rec.RequestBody == nil || *rec.RequestBody != payload {
		t.Errorf("expected request body %q to be captured, got %v", payload, rec.RequestBody)
	}
	if rec.RequestSize != len(payload) {
		t.Errorf("expected request size %d, got %d", len(payload), rec.RequestSize)
	}
}

func TestMonitorRecordsHandlerError(t *testing.T) {
	app, store := newMonitorApp(t)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected the host error handler to answer 500, got %d", resp.StatusCode)
	}

	records := storedRecords(t, store)
	if len(records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records))
	}
	rec := records[0]
	if rec.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("expected recorded status 500, got %d", rec.StatusCode)
	}
	info := decodeErrorInfo(t, rec.ErrorInfo)
	if info.ErrorType == "" {
		t.Error("expected a non-empty error type")
	}
	if info.ErrorMessage != "boom" {
		t.Errorf("expected error message %q, got %q", "boom", info.ErrorMessage)
	}
	if rec.ResponseHeaders != nil {
		t.Error("expected no response headers on the fault path")
	}
}

func TestMonitorRecordsFiberErrorCode(t *testing.T) {
	app, store := newMonitorApp(t)
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "nothing here")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 from the host error handler, got %d", resp.StatusCode)
	}

	records := storedRecords(t, store)
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].StatusCode != fiber.StatusNotFound {
		t.Errorf("expected recorded status 404, got %d", records[0].StatusCode)
	}
}

func TestMonitorRecordsPanic(t *testing.T) {
	app, store := newMonitorApp(t)
	app.Get("/fatal", func(c *fiber.Ctx) error {
		panic("kaboom")
	})

	// The outer recover middleware turns the re-raised panic into a 500,
	// exactly like a host app would.
	resp, err := app.Test(httptest.NewRequest("GET", "/fatal", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", resp.StatusCode)
	}

	records := storedRecords(t, store)
	if len(records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records))
	}
	rec := records[0]
	if rec.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("expected recorded status 500, got %d", rec.StatusCode)
	}
	info := decodeErrorInfo(t, rec.ErrorInfo)
	if info.ErrorMessage != "kaboom" {
		t.Errorf("expected panic message captured, got %q", info.ErrorMessage)
	}
	if info.Traceback == "" {
		t.Error("expected a stack trace for the panic")
	}
}

func TestMonitorSkipsNonTextResponseBody(t *testing.T) {
	app, store := newMonitorApp(t)
	blob := []byte{0x00, 0xff, 0x10, 0x80}
	app.Get("/blob", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
		return c.Send(blob)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/blob", nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != len(blob) {
		t.Errorf("binary response altered: got %d bytes, want %d", len(body), len(blob))
	}

	records := storedRecords(t, store)
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].ResponseBody != nil {
		t.Error("expected no body capture for a binary content type")
	}
	if records[0].ResponseSize != 0 {
		t.Errorf("expected response size 0 for uncaptured body, got %d", records[0].ResponseSize)
	}
}
