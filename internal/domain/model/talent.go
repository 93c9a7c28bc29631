// Package model contains the marketplace records the console reads and edits.
package model

import (
	"strings"
	"time"
)

// JobTitle is a job title a talent may hold.
type JobTitle struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Skill is a skill a talent may list.
type Skill struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Talent is a marketplace talent profile.
//
// IsFeatured doubles as the "active" flag: the list screen calls it active,
// the activate/deactivate endpoints flip it.
type Talent struct {
	ID             int64     `json:"id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	Bio            string    `json:"bio"`
	ProfilePicture *string   `json:"profile_picture"`
	ResumeFile     *string   `json:"resume_file"`
	JobTitleID     *int64    `json:"job_title_id"`
	JobTitle       *JobTitle `json:"job_title,omitempty"`
	IsFeatured     bool      `json:"is_featured"`
	CreatedAt      time.Time `json:"createdAt"`
}

// JobTitleName returns the associated title, or "" when none is set.
func (t Talent) JobTitleName() string {
	if t.JobTitle == nil {
		return ""
	}
	return t.JobTitle.Title
}

// SelectedJobTitle returns the job title association as a value, or nil.
func (t Talent) SelectedJobTitle() *JobTitle {
	if t.JobTitleID == nil {
		return nil
	}
	jt := JobTitle{ID: *t.JobTitleID}
	if t.JobTitle != nil {
		jt.Title = t.JobTitle.Title
	}
	return &jt
}

// HasProfilePicture reports whether a non-empty picture reference is set.
func (t Talent) HasProfilePicture() bool {
	return t.ProfilePicture != nil && strings.TrimSpace(*t.ProfilePicture) != ""
}

// HasResume reports whether a non-empty resume reference is set.
func (t Talent) HasResume() bool {
	return t.ResumeFile != nil && strings.TrimSpace(*t.ResumeFile) != ""
}

// SkillIDs returns the ids of skills in order.
func SkillIDs(skills []Skill) []int64 {
	ids := make([]int64, 0, len(skills))
	for _, s := range skills {
		ids = append(ids, s.ID)
	}
	return ids
}
