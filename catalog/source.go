package catalog

import (
	"fmt"
	"time"
)

// SourceType classifies the kind of market data a source produces.
type SourceType string

// Known source types.
const (
	SourcePrice     SourceType = "price"
	SourceNews      SourceType = "news"
	SourceSentiment SourceType = "sentiment"
	SourceOnChain   SourceType = "onchain"
)

// Valid reports whether the source type is one of the known kinds.
func (t SourceType) Valid() bool {
	switch t {
	case SourcePrice, SourceNews, SourceSentiment, SourceOnChain:
		return true
	}
	return false
}

// DataSource describes an upstream market data feed that streams can attach to.
type DataSource struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        SourceType `json:"type"`
	Enabled     bool       `json:"enabled"`
	Description string     `json:"description,omitempty"`
	Endpoint    string     `json:"endpoint,omitempty"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
}

// Validate checks the data source for structural problems.
func (s *DataSource) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("source ID cannot be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("source name cannot be empty")
	}
	if !s.Type.Valid() {
		return fmt.Errorf("unknown source type %q", s.Type)
	}
	return nil
}
