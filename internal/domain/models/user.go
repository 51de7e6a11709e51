package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone"`
	University   string    `json:"university"`
	StudentID    string    `json:"studentId"`
	IsDriver     bool      `json:"isDriver"`
	Bio          string    `json:"bio"`
	Rating       float64   `json:"rating"`
	ReviewCount  int       `json:"reviewCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is what other students see on a profile page.
type PublicUser struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	University  string  `json:"university"`
	IsDriver    bool    `json:"isDriver"`
	Bio         string  `json:"bio"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
}

func (u *User) ToPublic() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Name:        u.Name,
		University:  u.University,
		IsDriver:    u.IsDriver,
		Bio:         u.Bio,
		Rating:      u.Rating,
		ReviewCount: u.ReviewCount,
	}
}

// UserUpdate supports PATCH-style profile updates via pointer presence.
type UserUpdate struct {
	Name       *string
	Phone      *string
	University *string
	StudentID  *string
	Bio        *string
	IsDriver   *bool
}

// Apply copies the present fields onto u.
func (p UserUpdate) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.University != nil {
		u.University = *p.University
	}
	if p.StudentID != nil {
		u.StudentID = *p.StudentID
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.IsDriver != nil {
		u.IsDriver = *p.IsDriver
	}
}
