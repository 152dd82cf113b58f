package model

import "time"

// Capability is an explicit permission checked at the route boundary.
// Capabilities are derived from role flags once at login and embedded in
// the JWT; handlers never read role booleans directly.
type Capability string

const (
	CapQuestionsWrite  Capability = "questions:write"
	CapQuestionsReview Capability = "questions:review"
	CapImagesWrite     Capability = "images:write"
	CapImagesReview    Capability = "images:review"
	CapBatchesWrite    Capability = "batches:write"
	CapUsersManage     Capability = "users:manage"
	CapAdmin           Capability = "admin"
)

// User is an account in the question bank CMS.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`

	IsAdmin       bool `json:"is_admin"`
	IsReviewer    bool `json:"is_reviewer"`
	IsContributor bool `json:"is_contributor"`
	// ContributionCount tracks combined image+description contributions
	// for the quota-capped contributor role.
	ContributionCount int `json:"contribution_count"`

	ExamCategory string `json:"exam_category"`
	ExamType     string `json:"exam_type"`

	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Capabilities derives the explicit capability set from the role flags.
func (u *User) Capabilities() []Capability {
	var caps []Capability
	if u.IsAdmin {
		caps = append(caps,
			CapAdmin, CapUsersManage, CapBatchesWrite,
			CapQuestionsWrite, CapQuestionsReview,
			CapImagesWrite, CapImagesReview,
		)
		return caps
	}
	if u.IsReviewer {
		caps = append(caps, CapQuestionsReview, CapImagesReview)
	}
	if u.IsContributor {
		caps = append(caps, CapImagesWrite)
	}
	// Every active account may author questions and batches of its own.
	caps = append(caps, CapQuestionsWrite, CapBatchesWrite)
	return caps
}

// HasCapability reports whether the user's derived set contains c.
func (u *User) HasCapability(c Capability) bool {
	for _, have := range u.Capabilities() {
		if have == c {
			return true
		}
	}
	return false
}

// LoginRequest authenticates by username and password.
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,min=8,max=200"`
}

// RegisterRequest self-registers using a single-use registration token.
type RegisterRequest struct {
	Token    string `json:"token" binding:"required,max=200"`
	Username string `json:"username" binding:"required,min=3,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=200"`
}

// CreateUserRequest is the admin payload for creating an account directly.
type CreateUserRequest struct {
	Username      string `json:"username" binding:"required,min=3,max=100"`
	Email         string `json:"email" binding:"required,email,max=255"`
	Password      string `json:"password" binding:"required,min=8,max=200"`
	IsAdmin       bool   `json:"is_admin"`
	IsReviewer    bool   `json:"is_reviewer"`
	IsContributor bool   `json:"is_contributor"`
	ExamCategory  string `json:"exam_category" binding:"omitempty,max=100"`
	ExamType      string `json:"exam_type" binding:"omitempty,max=100"`
}

// UpdateUserRequest is the admin payload for editing an account.
type UpdateUserRequest struct {
	Email         string `json:"email" binding:"required,email,max=255"`
	IsAdmin       bool   `json:"is_admin"`
	IsReviewer    bool   `json:"is_reviewer"`
	IsContributor bool   `json:"is_contributor"`
	ExamCategory  string `json:"exam_category" binding:"omitempty,max=100"`
	ExamType      string `json:"exam_type" binding:"omitempty,max=100"`
	IsActive      bool   `json:"is_active"`
}
