package monitor

import (
	"bytes"
	"html/template"

	"fiber-monitor/config"
	"fiber-monitor/constants"
	"fiber-monitor/database"
	"fiber-monitor/logger"
	"fiber-monitor/middleware"
	"fiber-monitor/types"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
)

// MonitorController serves the dashboard page and the read API.
type MonitorController struct {
	store *database.Store
	cfg   config.Config
}

func NewMonitorController(store *database.Store, cfg config.Config) *MonitorController {
	return &MonitorController{store: store, cfg: cfg}
}

// GetStats returns the aggregate statistics.
func (mc *MonitorController) GetStats(c *fiber.Ctx) error {
	stats, err := mc.store.Stats()
	if err != nil {
		logger.Error("Failed to compute stats", err)
		return storeError(c)
	}
	return c.JSON(stats)
}

// GetRequests returns recent records, paginated by limit/offset.
func (mc *MonitorController) GetRequests(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", constants.DefaultPageSize)
	offset := c.QueryInt("offset", 0)

	requests, err := mc.store.RecentRequests(limit, offset)
	if err != nil {
		logger.Error("Failed to list recent requests", err)
		return storeError(c)
	}
	return c.JSON(requests)
}

// GetRequestDetail returns one record with its sub-objects deserialized.
func (mc *MonitorController) GetRequestDetail(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 0 {
		response := types.ApiResponse{
			Message: "Invalid request id",
			Status:  fiber.StatusBadRequest,
		}
		return c.Status(fiber.StatusBadRequest).JSON(&response)
	}

	detail, err := mc.store.RequestByID(uint(id))
	if err != nil {
		logger.Error("Failed to fetch request detail", err)
		return storeError(c)
	}
	if detail == nil {
		response := types.ApiResponse{
			Message: "Request not found",
			Status:  fiber.StatusNotFound,
		}
		return c.Status(fiber.StatusNotFound).JSON(&response)
	}
	return c.JSON(detail)
}

// GetAnalytics returns the chart payload for the requested resolution.
func (mc *MonitorController) GetAnalytics(c *fiber.Ctx) error {
	resolution := c.Query("resolution", "30s")

	analytics, err := mc.store.Analytics(resolution)
	if err != nil {
		logger.Error("Failed to compute analytics", err)
		return storeError(c)
	}
	return c.JSON(analytics)
}

// GetToken issues a Bearer token for programmatic access to the read API.
// The caller has already passed the dashboard gate.
func (mc *MonitorController) GetToken(c *fiber.Ctx) error {
	if mc.cfg.Auth.TokenSecret == "" {
		response := types.ApiResponse{
			Message: "Token auth is not configured",
			Status:  fiber.StatusBadRequest,
		}
		return c.Status(fiber.StatusBadRequest).JSON(&response)
	}

	token, err := middleware.IssueToken(mc.cfg)
	if err != nil {
		logger.Error("Failed to issue dashboard token", err)
		response := types.ApiResponse{
			Message: "Failed to issue token",
			Status:  fiber.StatusInternalServerError,
		}
		return c.Status(fiber.StatusInternalServerError).JSON(&response)
	}

	response := types.ApiResponse{
		Message: "Token issued",
		Status:  fiber.StatusOK,
		Token:   token,
	}
	return c.JSON(&response)
}

// Dashboard renders the HTML overview page.
func (mc *MonitorController) Dashboard(c *fiber.Ctx) error {
	stats, err := mc.store.Stats()
	if err != nil {
		logger.Error("Failed to compute stats", err)
		return storeError(c)
	}
	recent, err := mc.store.RecentRequests(constants.DefaultPageSize, 0)
	if err != nil {
		logger.Error("Failed to list recent requests", err)
		return storeError(c)
	}

	var buf bytes.Buffer
	err = dashboardTemplate.Execute(&buf, fiber.Map{
		"Stats":    stats,
		"Recent":   recent,
		"BasePath": mc.cfg.DashboardPath,
	})
	if err != nil {
		logger.Error("Failed to render dashboard", err)
		return storeError(c)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

func storeError(c *fiber.Ctx) error {
	response := types.ApiResponse{
		Message: "Monitor storage unavailable",
		Status:  fiber.StatusInternalServerError,
	}
	return c.Status(fiber.StatusInternalServerError).JSON(&response)
}

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"comma": humanize.Comma,
	"bytes": func(n int) string { return humanize.Bytes(uint64(n)) },
	"ms":    func(f float64) string { return humanize.FtoaWithDigits(f, 2) + " ms" },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<title>Monitor Dashboard</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: 6px 10px; text-align: left; font-size: 14px; }
th { background: #f4f4f4; }
.cards { display: flex; gap: 1rem; margin-bottom: 1.5rem; }
.card { border: 1px solid #ddd; border-radius: 6px; padding: 1rem 1.5rem; }
.card b { display: block; font-size: 22px; }
</style>
</head>
<body>
<h1>Monitor Dashboard</h1>
<div class="cards">
  <div class="card"><b>{{comma .Stats.TotalRequests}}</b>Total requests</div>
  <div class="card"><b>{{ms .Stats.AvgResponseTime}}</b>Avg response time</div>
  <div class="card"><b>{{comma .Stats.ErrorCount}}</b>Errors</div>
</div>
<h2>Recent requests</h2>
<table>
<tr><th>Time</th><th>Method</th><th>Path</th><th>Status</th><th>Duration</th><th>Size</th></tr>
{{range .Recent}}
<tr>
  <td>{{.FormattedTime}}</td>
  <td>{{.Method}}</td>
  <td><a href="{{$.BasePath}}/api/requests/{{.ID}}">{{.Path}}</a></td>
  <td>{{.StatusCode}}</td>
  <td>{{ms .ResponseTime}}</td>
  <td>{{bytes .ResponseSize}}</td>
</tr>
{{end}}
</table>
<p><a href="{{.BasePath}}/api/analytics?resolution=1h">Analytics JSON</a></p>
</body>
</html>
`))
