// Package models defines the domain types shared across the shopmesh
// service: catalog products, orders, returns, alerts, and the
// conversation transcript exchanged with the assistant.
package models

import "time"

// Product is a catalog product row
type Product struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Category    string    `json:"category" db:"category"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// RankedProduct is a product annotated with its retrieval score. The
// score is an RRF fused score for hybrid retrieval, a cosine similarity
// for vector-only retrieval, and zero for keyword fallback matches.
// Ranked results are ephemeral and never persisted.
type RankedProduct struct {
	Product
	Score float64 `json:"score" db:"score"`
}
