package store

import (
	"context"
	"sync"

	"semaphore/enrollment/internal/model"
)

// MemoryStore keeps the identity data in process memory. A single RWMutex
// guards every access so that concurrent add/remove on the same student can
// neither duplicate a course nor lose an update, and Reset swaps the whole
// snapshot without a reader observing a half-restored state.
type MemoryStore struct {
	mu       sync.RWMutex
	seed     Seed
	users    []model.User
	students []model.Student
}

func NewMemoryStore(seed Seed) *MemoryStore {
	s := &MemoryStore{seed: seed}
	s.restore()
	return s
}

func (s *MemoryStore) restore() {
	s.users = make([]model.User, len(s.seed.Users))
	copy(s.users, s.seed.Users)
	s.students = make([]model.Student, len(s.seed.Students))
	for i, student := range s.seed.Students {
		s.students[i] = model.Student{
			StudentID: student.StudentID,
			Courses:   append([]string(nil), student.Courses...),
		}
	}
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]model.User, len(s.users))
	copy(users, s.users)
	return users, nil
}

func (s *MemoryStore) GetUser(_ context.Context, username string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return model.User{}, ErrUserNotFound
}

func (s *MemoryStore) GetStudent(_ context.Context, studentID string) (model.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	student := s.findStudent(studentID)
	if student == nil {
		return model.Student{}, ErrStudentNotFound
	}
	return model.Student{
		StudentID: student.StudentID,
		Courses:   append([]string(nil), student.Courses...),
	}, nil
}

func (s *MemoryStore) AddCourse(_ context.Context, studentID, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	student := s.findStudent(studentID)
	if student == nil {
		return ErrStudentNotFound
	}
	for _, course := range student.Courses {
		if course == courseID {
			return ErrAlreadyEnrolled
		}
	}
	student.Courses = append(student.Courses, courseID)
	return nil
}

func (s *MemoryStore) RemoveCourse(_ context.Context, studentID, courseID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	student := s.findStudent(studentID)
	if student == nil {
		return nil, ErrStudentNotFound
	}
	index := -1
	for i, course := range student.Courses {
		if course == courseID {
			index = i
			break
		}
	}
	if index == -1 {
		return nil, ErrNotEnrolled
	}
	student.Courses = append(student.Courses[:index], student.Courses[index+1:]...)
	return append([]string(nil), student.Courses...), nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restore()
	return nil
}

func (s *MemoryStore) findStudent(studentID string) *model.Student {
	for i := range s.students {
		if s.students[i].StudentID == studentID {
			return &s.students[i]
		}
	}
	return nil
}
