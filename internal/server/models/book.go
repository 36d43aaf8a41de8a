package models

import "time"

type Book struct {
	ID        int64
	TenantID  int64
	Title     string
	Author    string
	ISBN      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
