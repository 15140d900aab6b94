package model

import "time"

// NestBit is a deployable image template
type NestBit struct {
	ID          string    `json:"id"`
	DockerImage string    `json:"dockerimage"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Author      string    `json:"author,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Theme is a set of Tailwind classes applied across the panel
type Theme struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Background  string     `json:"background"`
	TextColor   string     `json:"textColor"`
	ButtonColor string     `json:"buttonColor"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// BodyClass is the class string stored as the active theme
func (t *Theme) BodyClass() string {
	return t.Background + " " + t.TextColor
}
