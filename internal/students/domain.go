package students

import (
	"strings"
	"time"

	"github.com/ecoly/ecoly/internal/shared"
)

// Student is an enrolled pupil of one school.
type Student struct {
	ID            string     `json:"id"`
	SchoolID      string     `json:"schoolId"`
	ClassID       *string    `json:"classId"`
	StudentNumber string     `json:"studentNumber"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	FirstNameAr   *string    `json:"firstNameAr,omitempty"`
	LastNameAr    *string    `json:"lastNameAr,omitempty"`
	DateOfBirth   *time.Time `json:"dateOfBirth,omitempty"`
	PlaceOfBirth  *string    `json:"placeOfBirth,omitempty"`
	Gender        *string    `json:"gender,omitempty"`
	Address       *string    `json:"address,omitempty"`
	IsActive      bool       `json:"isActive"`
	Class         *ClassRef  `json:"class,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ClassRef is the class summary embedded in student payloads.
type ClassRef struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Level *string `json:"level,omitempty"`
}

// ListFilter narrows a student listing. SchoolID is mandatory.
type ListFilter struct {
	SchoolID string
	ClassID  string
	Search   string
	Page     int
	Limit    int
}

// ListResult is one page of students.
type ListResult struct {
	Students   []Student         `json:"students"`
	Pagination shared.Pagination `json:"pagination"`
}

// CreateInput carries the fields accepted when enrolling a student.
type CreateInput struct {
	FirstName    string  `json:"firstName" validate:"required,max=100"`
	LastName     string  `json:"lastName" validate:"required,max=100"`
	FirstNameAr  *string `json:"firstNameAr" validate:"omitempty,max=100"`
	LastNameAr   *string `json:"lastNameAr" validate:"omitempty,max=100"`
	DateOfBirth  *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	PlaceOfBirth *string `json:"placeOfBirth" validate:"omitempty,max=200"`
	Gender       *string `json:"gender" validate:"omitempty,oneof=MALE FEMALE"`
	Address      *string `json:"address" validate:"omitempty,max=500"`
	ClassID      *string `json:"classId" validate:"omitempty,uuid"`
}

// UpdateInput carries a partial update. Nil fields are left untouched; an
// empty classId detaches the student from its class.
type UpdateInput struct {
	FirstName    *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName     *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	FirstNameAr  *string `json:"firstNameAr" validate:"omitempty,max=100"`
	LastNameAr   *string `json:"lastNameAr" validate:"omitempty,max=100"`
	DateOfBirth  *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	PlaceOfBirth *string `json:"placeOfBirth" validate:"omitempty,max=200"`
	Gender       *string `json:"gender" validate:"omitempty,oneof=MALE FEMALE"`
	Address      *string `json:"address" validate:"omitempty,max=500"`
	ClassID      *string `json:"classId" validate:"omitempty,uuid"`
	IsActive     *bool   `json:"isActive"`
}

// normalized returns in with blank optional fields cleared, so validation
// only sees values the caller actually supplied.
func (in CreateInput) normalized() CreateInput {
	in.FirstNameAr = blankToNil(in.FirstNameAr)
	in.LastNameAr = blankToNil(in.LastNameAr)
	in.DateOfBirth = blankToNil(in.DateOfBirth)
	in.PlaceOfBirth = blankToNil(in.PlaceOfBirth)
	in.Gender = blankToNil(in.Gender)
	in.Address = blankToNil(in.Address)
	in.ClassID = blankToNil(in.ClassID)
	return in
}

// forValidation clears blank values of the fields where blank means
// "unset" (class, birth date, gender); the update itself still applies them.
func (u UpdateInput) forValidation() UpdateInput {
	u.DateOfBirth = blankToNil(u.DateOfBirth)
	u.Gender = blankToNil(u.Gender)
	u.ClassID = blankToNil(u.ClassID)
	return u
}

func blankToNil(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	return value
}

// IsEmpty reports whether the update changes nothing.
func (u UpdateInput) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.FirstNameAr == nil && u.LastNameAr == nil &&
		u.DateOfBirth == nil && u.PlaceOfBirth == nil && u.Gender == nil && u.Address == nil &&
		u.ClassID == nil && u.IsActive == nil
}
