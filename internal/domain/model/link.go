package model

// Link is a tracked link. ClickCount is counted over the requested click window.
type Link struct {
	ID         int64  `json:"id"`
	Label      string `json:"label"`
	URL        string `json:"url"`
	ClickCount int64  `json:"click_count"`
}

// DashboardStats are the aggregate counters shown on the dashboard cards.
type DashboardStats struct {
	Talents         int64 `json:"talents"`
	ApprovedTalents int64 `json:"approvedTalents"`
	Proposals       int64 `json:"proposals"`
	Companies       int64 `json:"companies"`
	Jobs            int64 `json:"jobs"`
}
