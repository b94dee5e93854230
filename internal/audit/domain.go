// Package audit keeps the trail of denied access checks.
package audit

import "time"

// Denial is one persisted route or API guard denial.
type Denial struct {
	ID          string    `json:"id"`
	Adapter     string    `json:"adapter"`
	Outcome     string    `json:"outcome"`
	UserID      string    `json:"userId,omitempty"`
	Role        string    `json:"role,omitempty"`
	SchoolID    string    `json:"schoolId,omitempty"`
	Requirement string    `json:"requirement"`
	Resource    string    `json:"resource,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Filters narrows a denial listing. SchoolID is mandatory.
type Filters struct {
	SchoolID string
	From     time.Time
	To       time.Time
	Adapter  string
	Page     int
	PageSize int
}

// PagingInfo holds simple next/previous paging metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	PrevPage int  `json:"prevPage,omitempty"`
	NextPage int  `json:"nextPage,omitempty"`
}

// Result wraps a page of denials.
type Result struct {
	Rows   []Denial   `json:"rows"`
	Paging PagingInfo `json:"paging"`
}
