package domain

import "time"

// ProjectSettings holds rendering defaults for a project.
type ProjectSettings struct {
	Resolution      string `json:"resolution"`
	FrameRate       int    `json:"frameRate"`
	Duration        int    `json:"duration"`
	BackgroundColor string `json:"backgroundColor"`
}

// DefaultProjectSettings returns the settings assigned to new projects.
func DefaultProjectSettings() ProjectSettings {
	return ProjectSettings{
		Resolution:      "1080p",
		FrameRate:       30,
		Duration:        30,
		BackgroundColor: "#000000",
	}
}

// Project is a shared workspace a user collaborates on with teammates.
type Project struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Template      string          `json:"template"`
	UserID        string          `json:"userId"`
	Collaborators []string        `json:"collaborators"`
	Settings      ProjectSettings `json:"settings"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// HasMember reports whether the user owns the project or collaborates on it.
func (p *Project) HasMember(userID string) bool {
	if p.UserID == userID {
		return true
	}
	for _, id := range p.Collaborators {
		if id == userID {
			return true
		}
	}
	return false
}

// ProjectUpdate carries partial changes to a project. Nil fields are
// left untouched.
type ProjectUpdate struct {
	Name          *string
	Description   *string
	Settings      *ProjectSettings
	Collaborators *[]string
}
