// Package models defines core data structures for projects, assets, chunks, and answers.
package models

import "time"

// Project is an isolated namespace for assets, chunks, tables, and one vector collection.
// ID names materialized tables; UUID names the vector collection.
type Project struct {
	ID        int64     `json:"project_id" gorm:"primaryKey;autoIncrement:false"`
	UUID      string    `json:"project_uuid" gorm:"uniqueIndex;size:36;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
