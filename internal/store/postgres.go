package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"semaphore/enrollment/internal/model"
)

// PostgresStore backs the identity data with Postgres. Course order is kept
// by a serial position column on enrollments; Reset reseeds inside a single
// transaction so concurrent readers see either the old or the seed state.
type PostgresStore struct {
	pool *pgxpool.Pool
	seed Seed
}

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func NewPostgresStore(pool *pgxpool.Pool, seed Seed) *PostgresStore {
	return &PostgresStore{pool: pool, seed: seed}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			position   BIGSERIAL PRIMARY KEY,
			username   TEXT NOT NULL UNIQUE,
			role       TEXT NOT NULL,
			student_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS students (
			student_id TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS enrollments (
			id         UUID PRIMARY KEY,
			position   BIGSERIAL,
			student_id TEXT NOT NULL REFERENCES students (student_id),
			course_id  TEXT NOT NULL,
			UNIQUE (student_id, course_id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SeedIfEmpty loads the seed snapshot on a fresh database and leaves an
// already-populated one untouched.
func (s *PostgresStore) SeedIfEmpty(ctx context.Context) error {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.Reset(ctx)
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT username, role, COALESCE(student_id, '')
		FROM users
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.Username, &user.Role, &user.StudentID); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *PostgresStore) GetUser(ctx context.Context, username string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT username, role, COALESCE(student_id, '')
		FROM users
		WHERE username = $1
	`, username)
	if err := row.Scan(&user.Username, &user.Role, &user.StudentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetStudent(ctx context.Context, studentID string) (model.Student, error) {
	if err := s.studentExists(ctx, s.pool, studentID); err != nil {
		return model.Student{}, err
	}
	courses, err := s.courses(ctx, s.pool, studentID)
	if err != nil {
		return model.Student{}, err
	}
	return model.Student{StudentID: studentID, Courses: courses}, nil
}

func (s *PostgresStore) AddCourse(ctx context.Context, studentID, courseID string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := s.studentExists(ctx, tx, studentID); err != nil {
			return err
		}
		var exists bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)
		`, studentID, courseID).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyEnrolled
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO enrollments (id, student_id, course_id)
			VALUES ($1, $2, $3)
		`, uuid.NewString(), studentID, courseID)
		return err
	})
}

func (s *PostgresStore) RemoveCourse(ctx context.Context, studentID, courseID string) ([]string, error) {
	var remaining []string
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := s.studentExists(ctx, tx, studentID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2
		`, studentID, courseID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotEnrolled
		}
		remaining, err = s.courses(ctx, tx, studentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return remaining, nil
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE enrollments, students, users RESTART IDENTITY`); err != nil {
			return err
		}
		for _, user := range s.seed.Users {
			var studentID *string
			if user.StudentID != "" {
				id := user.StudentID
				studentID = &id
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO users (username, role, student_id) VALUES ($1, $2, $3)
			`, user.Username, string(user.Role), studentID); err != nil {
				return err
			}
		}
		for _, student := range s.seed.Students {
			if _, err := tx.Exec(ctx, `
				INSERT INTO students (student_id) VALUES ($1)
			`, student.StudentID); err != nil {
				return err
			}
			for _, courseID := range student.Courses {
				if _, err := tx.Exec(ctx, `
					INSERT INTO enrollments (id, student_id, course_id) VALUES ($1, $2, $3)
				`, uuid.NewString(), student.StudentID, courseID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PostgresStore) studentExists(ctx context.Context, q querier, studentID string) error {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM students WHERE student_id = $1)
	`, studentID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrStudentNotFound
	}
	return nil
}

func (s *PostgresStore) courses(ctx context.Context, q querier, studentID string) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT course_id FROM enrollments WHERE student_id = $1 ORDER BY position
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []string
	for rows.Next() {
		var courseID string
		if err := rows.Scan(&courseID); err != nil {
			return nil, err
		}
		courses = append(courses, courseID)
	}
	return courses, rows.Err()
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
