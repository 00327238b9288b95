package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fiber-monitor/constants"
	"fiber-monitor/models/record"
	"fiber-monitor/types"

	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

// Store is the query surface over the requests table. The capture middleware
// holds one for writes; the dashboard holds one for reads.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema re-runs the idempotent schema setup on this store's handle.
func (s *Store) EnsureSchema() error {
	return EnsureSchema(s.db)
}

// Save appends one record. The record is committed before Save returns.
func (s *Store) Save(rec *record.Record) error {
	if err := s.EnsureSchema(); err != nil {
		return err
	}
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("inserting request record: %w", err)
	}
	return nil
}

// RecentRequests returns records ordered by timestamp descending. A limit
// of zero or less falls back to the default page size; a negative offset is
// treated as zero.
func (s *Store) RecentRequests(limit, offset int) ([]types.RecordView, error) {
	if err := s.EnsureSchema(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = constants.DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var records []record.Record
	err := s.db.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing recent requests: %w", err)
	}

	views := make([]types.RecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, types.RecordView{
			Record:        rec,
			FormattedTime: formatEpoch(rec.Timestamp),
		})
	}
	return views, nil
}

// RequestByID returns one record with its JSON sub-objects deserialized, or
// nil when no record has the given id.
func (s *Store) RequestByID(id uint) (*types.RecordDetail, error) {
	if err := s.EnsureSchema(); err != nil {
		return nil, err
	}

	var rec record.Record
	if err := s.db.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching request %d: %w", id, err)
	}

	detail := &types.RecordDetail{
		ID:            rec.ID,
		RequestID:     rec.RequestID,
		Timestamp:     rec.Timestamp,
		FormattedTime: formatEpoch(rec.Timestamp),
		Method:        rec.Method,
		Path:          rec.Path,
		QueryParams:   rec.QueryParams,
		StatusCode:    rec.StatusCode,
		ResponseTime:  rec.ResponseTime,
		RequestSize:   rec.RequestSize,
		ResponseSize:  rec.ResponseSize,
		ClientIP:      rec.ClientIP,
		UserAgent:     rec.UserAgent,
		RequestBody:   rec.RequestBody,
		ResponseBody:  rec.ResponseBody,
	}
	if rec.Headers != nil {
		_ = json.Unmarshal([]byte(*rec.Headers), &detail.Headers)
	}
	if rec.ResponseHeaders != nil {
		_ = json.Unmarshal([]byte(*rec.ResponseHeaders), &detail.ResponseHeaders)
	}
	if rec.ErrorInfo != nil {
		var errInfo record.ErrorInfo
		if err := json.Unmarshal([]byte(*rec.ErrorInfo), &errInfo); err == nil {
			detail.ErrorInfo = &errInfo
		}
	}
	return detail, nil
}

// Stats returns the aggregate view over all stored records.
func (s *Store) Stats() (types.Stats, error) {
	stats := types.Stats{StatusCodes: map[string]int64{}}
	if err := s.EnsureSchema(); err != nil {
		return stats, err
	}

	if err := s.db.Model(&record.Record{}).Count(&stats.TotalRequests).Error; err != nil {
		return stats, fmt.Errorf("counting requests: %w", err)
	}

	// COALESCE keeps the empty-table average at 0 instead of NULL.
	err := s.db.Raw("SELECT ROUND(COALESCE(AVG(response_time), 0), 2) FROM requests").
		Scan(&stats.AvgResponseTime).Error
	if err != nil {
		return stats, fmt.Errorf("averaging response time: %w", err)
	}

	var codes []struct {
		StatusCode int
		Count      int64
	}
	err = s.db.Raw("SELECT status_code, COUNT(*) AS count FROM requests GROUP BY status_code").
		Scan(&codes).Error
	if err != nil {
		return stats, fmt.Errorf("grouping status codes: %w", err)
	}
	for _, row := range codes {
		stats.StatusCodes[strconv.Itoa(row.StatusCode)] = row.Count
	}

	err = s.db.Model(&record.Record{}).Where("error_info IS NOT NULL").
		Count(&stats.ErrorCount).Error
	if err != nil {
		return stats, fmt.Errorf("counting errors: %w", err)
	}
	return stats, nil
}

// resolutionConfig maps a resolution tag to its bucket width, lookback
// window and strftime label format.
type resolutionConfig struct {
	BucketSeconds int64
	Lookback      int64
	Format        string
}

var resolutions = map[string]resolutionConfig{
	"30s": {BucketSeconds: 30, Lookback: 3600, Format: "%H:%M:%S"},
	"1m":  {BucketSeconds: 60, Lookback: 3600, Format: "%H:%M"},
	"5m":  {BucketSeconds: 300, Lookback: 7200, Format: "%H:%M"},
	"15m": {BucketSeconds: 900, Lookback: 21600, Format: "%H:%M"},
	"30m": {BucketSeconds: 1800, Lookback: 43200, Format: "%H:%M"},
	"1h":  {BucketSeconds: 3600, Lookback: 86400, Format: "%H:00"},
	"1d":  {BucketSeconds: 86400, Lookback: 604800, Format: "%Y-%m-%d"},
}

// Analytics computes the chart payload for the given resolution tag.
// Unknown tags bucket as 30s while the requested tag is echoed back.
func (s *Store) Analytics(resolution string) (types.Analytics, error) {
	analytics := types.Analytics{
		Resolution:               resolution,
		RequestsOverTime:         []types.TimeBucket{},
		ResponseTimeDistribution: []types.ResponseTimeBucket{},
		TopEndpoints:             []types.EndpointStat{},
		StatusTrends:             []types.StatusTrend{},
	}
	if err := s.EnsureSchema(); err != nil {
		return analytics, err
	}

	overTime, err := s.requestsOverTime(resolution)
	if err != nil {
		return analytics, err
	}
	analytics.RequestsOverTime = overTime

	var bands []struct {
		Band  string
		Count int64
	}
	err = s.db.Raw(`
		SELECT
			CASE
				WHEN response_time < 100 THEN '0-100ms'
				WHEN response_time < 500 THEN '100-500ms'
				WHEN response_time < 1000 THEN '500ms-1s'
				WHEN response_time < 5000 THEN '1-5s'
				ELSE '5s+'
			END AS band,
			COUNT(*) AS count
		FROM requests
		GROUP BY band`).Scan(&bands).Error
	if err != nil {
		return analytics, fmt.Errorf("building response time distribution: %w", err)
	}
	for _, row := range bands {
		analytics.ResponseTimeDistribution = append(analytics.ResponseTimeDistribution,
			types.ResponseTimeBucket{Range: row.Band, Count: row.Count})
	}

	err = s.db.Raw(`
		SELECT path, COUNT(*) AS count, ROUND(AVG(response_time), 2) AS avg_time
		FROM requests
		GROUP BY path
		ORDER BY count DESC
		LIMIT 10`).Scan(&analytics.TopEndpoints).Error
	if err != nil {
		return analytics, fmt.Errorf("building top endpoints: %w", err)
	}

	// Last 7 calendar days including today, aligned on UTC day boundaries.
	weekStart := now.With(time.Now().UTC()).BeginningOfDay().AddDate(0, 0, -6).Unix()
	err = s.db.Raw(`
		SELECT date(datetime(timestamp, 'unixepoch')) AS date, status_code, COUNT(*) AS count
		FROM requests
		WHERE timestamp >= ?
		GROUP BY date, status_code
		ORDER BY date, status_code`, weekStart).Scan(&analytics.StatusTrends).Error
	if err != nil {
		return analytics, fmt.Errorf("building status trends: %w", err)
	}

	return analytics, nil
}

func (s *Store) requestsOverTime(resolution string) ([]types.TimeBucket, error) {
	res, ok := resolutions[resolution]
	if !ok {
		res = resolutions["30s"]
	}
	cutoff := time.Now().Unix() - res.Lookback

	var rows []struct {
		TimeSlot string
		Count    int64
	}
	var err error
	if resolution == "30s" {
		// 30s buckets label the half-minute explicitly.
		err = s.db.Raw(`
			SELECT
				strftime('%H:%M', datetime(timestamp, 'unixepoch')) || ':' ||
				CASE
					WHEN CAST(strftime('%S', datetime(timestamp, 'unixepoch')) AS INTEGER) < 30 THEN '00'
					ELSE '30'
				END AS time_slot,
				COUNT(*) AS count
			FROM requests
			WHERE timestamp > ?
			GROUP BY time_slot
			ORDER BY time_slot`, cutoff).Scan(&rows).Error
	} else {
		// Bucket boundary = integer-divide the epoch by the width, re-multiply.
		err = s.db.Raw(`
			SELECT
				strftime(?, datetime((CAST(timestamp AS INTEGER) / ?) * ?, 'unixepoch')) AS time_slot,
				COUNT(*) AS count
			FROM requests
			WHERE timestamp > ?
			GROUP BY time_slot
			ORDER BY time_slot`, res.Format, res.BucketSeconds, res.BucketSeconds, cutoff).Scan(&rows).Error
	}
	if err != nil {
		return nil, fmt.Errorf("bucketing requests over time: %w", err)
	}

	buckets := make([]types.TimeBucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, types.TimeBucket{Time: row.TimeSlot, Count: row.Count})
	}
	return buckets, nil
}

func formatEpoch(ts float64) string {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).Format("03:04:05 PM")
}
