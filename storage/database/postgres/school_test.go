package pgrepos

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestSchoolRepositoryUpsertEnrollmentIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchoolRepository(db)
	ctx := context.Background()

	studentID := "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"
	subjectID := "b1ffcd88-8d1a-4fe7-aa5c-5aa8ac270b22"

	// enrolling twice runs the same upsert; the second is a no-op on conflict
	for i := 0; i < 2; i++ {
		mock.ExpectExec(`INSERT INTO student_subject .+ ON CONFLICT \(student_id, subject_id\) DO UPDATE`).
			WithArgs(studentID, subjectID).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	assert.NoError(t, repo.UpsertEnrollment(ctx, studentID, subjectID))
	assert.NoError(t, repo.UpsertEnrollment(ctx, studentID, subjectID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryIsEnrolled(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("student-id", "subject-id").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	enrolled, err := repo.IsEnrolled(context.Background(), "student-id", "subject-id")
	assert.NoError(t, err)
	assert.True(t, enrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
