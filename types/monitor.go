package types

import "fiber-monitor/models/record"

// RecordView is a listed record augmented with a human-readable time string.
type RecordView struct {
	record.Record
	FormattedTime string `json:"formatted_time"`
}

// RecordDetail is a single record with its JSON sub-objects deserialized.
type RecordDetail struct {
	ID              uint              `json:"id"`
	RequestID       string            `json:"request_id"`
	Timestamp       float64           `json:"timestamp"`
	FormattedTime   string            `json:"formatted_time"`
	Method          string            `json:"method"`
	Path            string            `json:"path"`
	QueryParams     string            `json:"query_params"`
	StatusCode      int               `json:"status_code"`
	ResponseTime    float64           `json:"response_time"`
	RequestSize     int               `json:"request_size"`
	ResponseSize    int               `json:"response_size"`
	ClientIP        *string           `json:"client_ip"`
	UserAgent       *string           `json:"user_agent"`
	Headers         map[string]string `json:"headers,omitempty"`
	RequestBody     *string           `json:"request_body"`
	ResponseBody    *string           `json:"response_body"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	ErrorInfo       *record.ErrorInfo `json:"error_info,omitempty"`
}

// Stats summarizes all stored records.
type Stats struct {
	TotalRequests   int64            `json:"total_requests"`
	AvgResponseTime float64          `json:"avg_response_time"`
	StatusCodes     map[string]int64 `json:"status_codes"`
	ErrorCount      int64            `json:"error_count"`
}

// TimeBucket is one point of the requests-over-time series.
type TimeBucket struct {
	Time  string `json:"time"`
	Count int64  `json:"count"`
}

// ResponseTimeBucket is one band of the response-time histogram.
type ResponseTimeBucket struct {
	Range string `json:"range"`
	Count int64  `json:"count"`
}

// EndpointStat is one row of the top-endpoints table.
type EndpointStat struct {
	Path    string  `json:"path"`
	Count   int64   `json:"count"`
	AvgTime float64 `json:"avg_time"`
}

// StatusTrend is a daily count for one status code.
type StatusTrend struct {
	Date       string `json:"date"`
	StatusCode int    `json:"status_code"`
	Count      int64  `json:"count"`
}

// Analytics is the chart payload served to the dashboard.
type Analytics struct {
	RequestsOverTime         []TimeBucket         `json:"requests_over_time"`
	Resolution               string               `json:"resolution"`
	ResponseTimeDistribution []ResponseTimeBucket `json:"response_time_distribution"`
	TopEndpoints             []EndpointStat       `json:"top_endpoints"`
	StatusTrends             []StatusTrend        `json:"status_trends"`
}
