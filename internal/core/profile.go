package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

const maxProfileNameLen = 100

// Profile is the public record of a user account.
type Profile struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	ProfilePicturePath string    `json:"profile_picture_path,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// ProfilePatch updates the editable parts of a profile.
type ProfilePatch struct {
	Name               *string `json:"name,omitempty"`
	ProfilePicturePath *string `json:"profile_picture_path,omitempty"`
}

func (p ProfilePatch) Validate() error {
	if p.Name == nil && p.ProfilePicturePath == nil {
		return ErrEmptyPatch
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" || utf8.RuneCountInString(name) > maxProfileNameLen {
			return ErrInvalidProfileName
		}
	}
	if p.ProfilePicturePath != nil && strings.Contains(*p.ProfilePicturePath, "..") {
		return ErrInvalidPicturePath
	}
	return nil
}

func (p ProfilePatch) Apply(prof Profile) Profile {
	if p.Name != nil {
		prof.Name = strings.TrimSpace(*p.Name)
	}
	if p.ProfilePicturePath != nil {
		prof.ProfilePicturePath = strings.TrimSpace(*p.ProfilePicturePath)
	}
	return prof
}
