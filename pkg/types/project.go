package types

import (
	"errors"
	"strings"
)

// Project represents an ingested capstone document
type Project struct {
	ID            int64
	Title         string
	Year          *int // Nullable - some documents are undated
	Abstract      string
	Filename      string
	SHA256        string
	Course        string
	Host          string
	DocType       string
	ExternalLinks string
}

// Section is an ordered heading/content block of a project
type Section struct {
	ID        int64
	ProjectID int64
	Heading   string
	Content   string
	Order     int
}

// ProjectDetail is a project with its child rows
type ProjectDetail struct {
	Project
	Authors  []string
	Keywords []string
	Sections []Section
}

// Category returns the label shown on result cards: the document type,
// falling back to the course
func (p *Project) Category() string {
	if p.DocType != "" {
		return p.DocType
	}
	return p.Course
}

// Validate checks the fields required to persist a project
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrMissingTitle
	}
	if p.SHA256 == "" {
		return ErrMissingDigest
	}
	if p.Year != nil && (*p.Year < 1900 || *p.Year > 9999) {
		return ErrInvalidYear
	}
	return nil
}

// ErrMissingTitle, ErrMissingDigest and ErrInvalidYear are project validation errors
var (
	ErrMissingTitle  = errors.New("project title is required")
	ErrMissingDigest = errors.New("project sha256 is required")
	ErrInvalidYear   = errors.New("project year out of range")
)
