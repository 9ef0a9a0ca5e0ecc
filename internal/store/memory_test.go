package store

import (
	"context"
	"errors"
	"testing"
)

func TestAddCourseAppendsOnce(t *testing.T) {
	s := NewMemoryStore(DefaultSeed())
	ctx := context.Background()

	if err := s.AddCourse(ctx, "670610714", "201201"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	student, err := s.GetStudent(ctx, "670610714")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	count := 0
	for _, course := range student.Courses {
		if course == "201201" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected course once, found %d", count)
	}

	if err := s.AddCourse(ctx, "670610714", "201201"); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
	}
	after, _ := s.GetStudent(ctx, "670610714")
	if len(after.Courses) != len(student.Courses) {
		t.Fatalf("duplicate add changed course count")
	}
}

func TestAddCourseUnknownStudent(t *testing.T) {
	s := NewMemoryStore(DefaultSeed())
	if err := s.AddCourse(context.Background(), "999999999", "201101"); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestRemoveCoursePreservesOrder(t *testing.T) {
	s := NewMemoryStore(DefaultSeed())
	ctx := context.Background()

	remaining, err := s.RemoveCourse(ctx, "670610715", "261207")
	if err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if len(remaining) != 1 || remaining[0] != "269101" {
		t.Fatalf("unexpected remaining courses: %v", remaining)
	}
}

func TestRemoveCourseNotEnrolled(t *testing.T) {
	s := NewMemoryStore(DefaultSeed())
	ctx := context.Background()

	if _, err := s.RemoveCourse(ctx, "670610716", "201101"); !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("expected ErrNotEnrolled for empty list, got %v", err)
	}
	if _, err := s.RemoveCourse(ctx, "670610714", "999999"); !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("expected ErrNotEnrolled, got %v", err)
	}
	student, _ := s.GetStudent(ctx, "670610714")
	if len(student.Courses) != 1 || student.Courses[0] != "201101" {
		t.Fatalf("failed remove mutated state: %v", student.Courses)
	}
}

func TestAddRemoveRoundTrip(t *testing.T) {
	s := NewMemoryStore(DefaultSeed())
	ctx := context.Background()

	before, _ := s.GetStudent(ctx, "670610714")
	if err := s.AddCourse(ctx, "670610714", "261497"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := s.RemoveCourse(ctx, "670610714", "261497"); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	after, _ := s.GetStudent(ctx, "670610714")
	if len(after.Courses) != len(before.Courses) {
		t.Fatalf("round trip changed course count: %v vs %v", before.Courses, after.Courses)
	}
	for i := range before.Courses {
		if before.Courses[i] != after.Courses[i] {
			t.Fatalf("round trip changed courses: %v vs %v", before.Courses, after.Courses)
		}
	}
}

func TestResetRestoresSeed(t *testing.T) {
	s := NewMemoryStore(DefaultSeed())
	ctx := context.Background()

	if err := s.AddCourse(ctx, "670610714", "201201"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := s.RemoveCourse(ctx, "670610715", "261207"); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset error: %v", err)
	}

	student, err := s.GetStudent(ctx, "670610714")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if len(student.Courses) != 1 || student.Courses[0] != "201101" {
		t.Fatalf("reset did not restore seed courses: %v", student.Courses)
	}
	other, _ := s.GetStudent(ctx, "670610715")
	if len(other.Courses) != 2 {
		t.Fatalf("reset did not restore removed course: %v", other.Courses)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	s := NewMemoryStore(DefaultSeed())
	ctx := context.Background()

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset error: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("second reset error: %v", err)
	}
	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(users) != len(DefaultSeed().Users) {
		t.Fatalf("unexpected user count after resets: %d", len(users))
	}
}

func TestSeedIsolation(t *testing.T) {
	seed := DefaultSeed()
	s := NewMemoryStore(seed)
	ctx := context.Background()

	if err := s.AddCourse(ctx, "670610714", "201201"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if len(seed.Students[0].Courses) != 1 {
		t.Fatalf("mutation leaked into seed: %v", seed.Students[0].Courses)
	}
}

func TestGetStudentCopies(t *testing.T) {
	s := NewMemoryStore(DefaultSeed())
	ctx := context.Background()

	student, _ := s.GetStudent(ctx, "670610715")
	student.Courses[0] = "tampered"

	fresh, _ := s.GetStudent(ctx, "670610715")
	if fresh.Courses[0] != "261207" {
		t.Fatalf("caller mutated store-held slice")
	}
}
