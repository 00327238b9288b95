package record

import (
	"time"
)

// Record represents one observed HTTP request/response exchange.
// Optional sub-objects (headers, error info) are stored JSON-encoded.
type Record struct {
	ID              uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID       string   `gorm:"type:varchar(36)" json:"request_id"`
	Timestamp       float64  `gorm:"not null" json:"timestamp"`
	Method          string   `gorm:"type:varchar(10);not null" json:"method"`
	Path            string   `gorm:"type:text;not null" json:"path"`
	QueryParams     string   `gorm:"type:text" json:"query_params"`
	StatusCode      int      `gorm:"not null" json:"status_code"`
	ResponseTime    float64  `gorm:"not null" json:"response_time"`
	RequestSize     int      `gorm:"default:0" json:"request_size"`
	ResponseSize    int      `gorm:"default:0" json:"response_size"`
	ClientIP        *string  `gorm:"type:varchar(45)" json:"client_ip"`
	UserAgent       *string  `gorm:"type:text" json:"user_agent"`
	Headers         *string  `gorm:"type:text" json:"headers"`
	RequestBody     *string  `gorm:"type:text" json:"request_body"`
	ResponseBody    *string  `gorm:"type:text" json:"response_body"`
	ResponseHeaders *string  `gorm:"type:text" json:"response_headers"`
	ErrorInfo       *string  `gorm:"type:text" json:"error_info"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName keeps the historical table name used by the dashboard queries.
func (Record) TableName() string {
	return "requests"
}

// ErrorInfo describes an unhandled fault raised by the downstream handler.
type ErrorInfo struct {
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
	Traceback    string `json:"traceback"`
}
