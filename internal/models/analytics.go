package models

import "time"

// AnalyticsSummary aggregates the submission set for the admin
// analytics view: distribution per dimension plus a daily series.
type AnalyticsSummary struct {
	Total       int              `json:"total"`
	ByStatus    map[string]int   `json:"by_status"`
	ByType      map[string]int   `json:"by_type"`
	ByCategory  map[string]int   `json:"by_category"`
	ByUrgency   map[string]int   `json:"by_urgency"`
	DailyCounts []DailyCount     `json:"daily_counts"`
	Heatmap     []CategoryByRisk `json:"category_urgency"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// DailyCount is one point of the submissions-per-day series.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CategoryByRisk is one heatmap row: urgency distribution for a category.
type CategoryByRisk struct {
	Category string `json:"category"`
	Low      int    `json:"low"`
	Medium   int    `json:"medium"`
	High     int    `json:"high"`
}
