package store

import (
	"context"
	"errors"

	"semaphore/enrollment/internal/model"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrAlreadyEnrolled = errors.New("enrollment already exists")
	ErrNotEnrolled     = errors.New("enrollment does not exist")
)

// IdentityStore is the capability set the policy and enrollment handlers need
// from the backing identity data. Implementations must keep each student's
// course list duplicate-free; AddCourse and RemoveCourse enforce that with
// membership checks before mutating.
type IdentityStore interface {
	// ListUsers returns all users in store order.
	ListUsers(ctx context.Context) ([]model.User, error)
	// GetUser resolves a username to its account, or ErrUserNotFound.
	GetUser(ctx context.Context, username string) (model.User, error)
	// GetStudent returns one student record, or ErrStudentNotFound.
	GetStudent(ctx context.Context, studentID string) (model.Student, error)
	// AddCourse appends courseID to the student's courses. Fails with
	// ErrStudentNotFound or, when already present, ErrAlreadyEnrolled.
	AddCourse(ctx context.Context, studentID, courseID string) error
	// RemoveCourse deletes courseID from the student's courses, preserving
	// the order of the remaining entries, and returns them. Fails with
	// ErrStudentNotFound or ErrNotEnrolled.
	RemoveCourse(ctx context.Context, studentID, courseID string) ([]string, error)
	// Reset restores users and students to the seed snapshot.
	Reset(ctx context.Context) error
}

// Seed is the snapshot the store starts from and returns to on Reset.
type Seed struct {
	Users    []model.User
	Students []model.Student
}

func DefaultSeed() Seed {
	return Seed{
		Users: []model.User{
			{Username: "admin", Role: model.RoleAdmin},
			{Username: "user1", Role: model.RoleStudent, StudentID: "670610714"},
			{Username: "user2", Role: model.RoleStudent, StudentID: "670610715"},
			{Username: "user3", Role: model.RoleStudent, StudentID: "670610716"},
		},
		Students: []model.Student{
			{StudentID: "670610714", Courses: []string{"201101"}},
			{StudentID: "670610715", Courses: []string{"261207", "269101"}},
			{StudentID: "670610716"},
		},
	}
}
