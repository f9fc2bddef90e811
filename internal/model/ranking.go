package model

import (
	"fmt"
	"sort"
	"time"
)

// WindowKind is the length of a ranking window
type WindowKind string

const (
	WindowDay  WindowKind = "day"
	WindowWeek WindowKind = "week"
)

// ParseWindowKind accepts "day"/"daily" and "week"/"weekly".
func ParseWindowKind(s string) (WindowKind, error) {
	switch s {
	case "day", "daily":
		return WindowDay, nil
	case "week", "weekly":
		return WindowWeek, nil
	default:
		return "", fmt.Errorf("unknown ranking window %q", s)
	}
}

// Window is a closed-open time interval over which sales are accumulated.
// Weeks are ISO weeks starting on Monday.
type Window struct {
	Kind  WindowKind
	Start time.Time
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayWindow returns the day containing t, in t's location.
func DayWindow(t time.Time) Window {
	return Window{Kind: WindowDay, Start: midnight(t)}
}

// WeekWindow returns the ISO week containing t, in t's location.
func WeekWindow(t time.Time) Window {
	offset := (int(t.Weekday()) + 6) % 7
	return Window{Kind: WindowWeek, Start: midnight(t).AddDate(0, 0, -offset)}
}

// WindowFor returns the window of kind that contains t.
func WindowFor(kind WindowKind, t time.Time) Window {
	if kind == WindowWeek {
		return WeekWindow(t)
	}
	return DayWindow(t)
}

// ID is the immutable window identifier: 2006-01-02 for days, 2006-W01 for weeks.
// IDs of the same kind sort in chronological order.
func (w Window) ID() string {
	if w.Kind == WindowWeek {
		year, week := w.Start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	}
	return w.Start.Format("2006-01-02")
}

// ParseWindowID is the inverse of Window.ID, placing the window start in loc.
func ParseWindowID(kind WindowKind, id string, loc *time.Location) (Window, error) {
	var w Window
	switch kind {
	case WindowDay:
		start, err := time.ParseInLocation("2006-01-02", id, loc)
		if err != nil {
			return Window{}, fmt.Errorf("parse day window %q: %w", id, err)
		}
		w = DayWindow(start)
	case WindowWeek:
		var year, week int
		if _, err := fmt.Sscanf(id, "%04d-W%02d", &year, &week); err != nil {
			return Window{}, fmt.Errorf("parse week window %q: %w", id, err)
		}
		// January 4th always falls in ISO week 1
		w = WeekWindow(time.Date(year, time.January, 4, 0, 0, 0, 0, loc))
		w.Start = w.Start.AddDate(0, 0, 7*(week-1))
	default:
		return Window{}, fmt.Errorf("unknown ranking window %q", kind)
	}
	if w.ID() != id {
		return Window{}, fmt.Errorf("malformed %s window id %q", kind, id)
	}
	return w, nil
}

func (w Window) End() time.Time {
	if w.Kind == WindowWeek {
		return w.Start.AddDate(0, 0, 7)
	}
	return w.Start.AddDate(0, 0, 1)
}

// Previous is the window immediately before w.
func (w Window) Previous() Window {
	if w.Kind == WindowWeek {
		return Window{Kind: WindowWeek, Start: w.Start.AddDate(0, 0, -7)}
	}
	return Window{Kind: WindowDay, Start: w.Start.AddDate(0, 0, -1)}
}

func (w Window) String() string {
	return string(w.Kind) + ":" + w.ID()
}

// RankingScore is the accumulated sales quantity of a product within one window.
type RankingScore struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// SortScores orders scores by quantity descending, then product ID ascending.
func SortScores(scores []RankingScore) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Quantity != scores[j].Quantity {
			return scores[i].Quantity > scores[j].Quantity
		}
		return scores[i].ProductID < scores[j].ProductID
	})
}

// TopScores sorts scores and keeps the first n. n <= 0 keeps everything.
func TopScores(scores []RankingScore, n int) []RankingScore {
	SortScores(scores)
	if n > 0 && len(scores) > n {
		scores = scores[:n]
	}
	return scores
}

// ProductRankingInfo is one row of a materialized ranking snapshot.
type ProductRankingInfo struct {
	Rank               int    `json:"rank"`
	ProductID          int64  `json:"product_id"`
	Name               string `json:"name"`
	Price              int64  `json:"price"`
	TotalSalesQuantity int64  `json:"total_sales_quantity"`
}

// RankingSnapshot is the published top-N of one closed window.
type RankingSnapshot struct {
	Kind           WindowKind           `json:"kind"`
	WindowID       string               `json:"window_id"`
	WindowStart    time.Time            `json:"window_start"`
	MaterializedAt time.Time            `json:"materialized_at"`
	Entries        []ProductRankingInfo `json:"entries"`
}

// SaleRecorded is published when an order line completes.
type SaleRecorded struct {
	ProductID  int64     `json:"product_id"`
	Quantity   int64     `json:"quantity"`
	OccurredAt time.Time `json:"occurred_at"`
}
