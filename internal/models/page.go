// Package models defines the domain types for Recursa.
package models

import "time"

// Page represents one node in the link graph: a text file under the
// graph root. Content is the single source of truth; links and checksum
// are derived on read and never persisted.
type Page struct {
	Path     string   `json:"path"`
	Content  string   `json:"content"`
	Checksum string   `json:"checksum"`
	Links    []string `json:"links,omitempty"`
}

// Commit is an immutable record in the version-control log.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
}

// QueryResult is one matching page from a graph query, carrying the
// fragments that satisfied each condition in condition order.
type QueryResult struct {
	FilePath string   `json:"filePath"`
	Matches  []string `json:"matches"`
}
