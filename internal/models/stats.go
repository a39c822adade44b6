package models

// DashboardStats holds the landing-page counters for an account.
type DashboardStats struct {
	ActiveStudents   int     `json:"active_students"`
	SessionsThisWeek int     `json:"sessions_this_week"`
	HoursThisMonth   float64 `json:"hours_this_month"`
	UnpaidTotal      float64 `json:"unpaid_total"`
	UnreadMessages   int     `json:"unread_messages"`
}
