package repository

import (
	"context"
	"database/sql"
)

// StatsRepo runs the dashboard aggregation queries.  Counts are grouped by
// enum columns; the three GROUP BY queries are independent and could run in
// parallel, but they are cheap enough that sequential execution keeps the
// code simple.
type StatsRepo struct{ DB *sql.DB }

func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{DB: db} }

// DashboardStats is the aggregate snapshot served by /dashboard/stats.
type DashboardStats struct {
	Total      int            `json:"total"`
	Open       int            `json:"open"`
	Closed     int            `json:"closed"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
	ByType     map[string]int `json:"by_type"`
}

// Collect gathers issue counts grouped by status, priority and type.
func (r *StatsRepo) Collect(ctx context.Context) (DashboardStats, error) {
	stats := DashboardStats{
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
		ByType:     map[string]int{},
	}
	if err := r.groupCount(ctx, "status", stats.ByStatus); err != nil {
		return stats, err
	}
	if err := r.groupCount(ctx, "priority", stats.ByPriority); err != nil {
		return stats, err
	}
	if err := r.groupCount(ctx, "type", stats.ByType); err != nil {
		return stats, err
	}
	for status, n := range stats.ByStatus {
		stats.Total += n
		if status == "CLOSED" || status == "RESOLVED" {
			stats.Closed += n
		} else {
			stats.Open += n
		}
	}
	return stats, nil
}

func (r *StatsRepo) groupCount(ctx context.Context, column string, into map[string]int) error {
	// column is one of the fixed enum columns above, never user input.
	rows, err := r.DB.QueryContext(ctx, "SELECT "+column+", COUNT(*) FROM issues GROUP BY "+column)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key sql.NullString
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		if key.Valid {
			into[key.String] = n
		}
	}
	return rows.Err()
}
