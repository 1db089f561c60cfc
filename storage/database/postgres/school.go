package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aulanet/campus/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

type subjectRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Code      string      `db:"code"`
	Year      int         `db:"year"`
	Division  null.String `db:"division"`
	TeacherID null.String `db:"teacher_id"`
	IsActive  bool        `db:"is_active"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (repo schoolRepository) subjectRow(s school.Subject) subjectRow {
	return subjectRow{
		ID:        s.ID,
		Name:      s.Name,
		Code:      s.Code,
		Year:      s.Year,
		Division:  null.NewString(s.Division, s.Division != ""),
		TeacherID: null.NewString(s.TeacherID, s.TeacherID != ""),
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
	}
}

func (repo schoolRepository) unrowSubject(r subjectRow) school.Subject {
	return school.Subject{
		ID:        r.ID,
		Name:      r.Name,
		Code:      r.Code,
		Year:      r.Year,
		Division:  r.Division.String,
		TeacherID: r.TeacherID.String,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// isUniqueViolation reports whether err is a psql unique-constraint violation.
func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == "23505"
}

func (repo schoolRepository) CreateSubject(ctx context.Context, s school.Subject) (school.Subject, error) {
	s.ID = uuid.New().String()
	r := repo.subjectRow(s)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO subject (id, name, code, year, division, teacher_id, is_active, created_at, updated_at)
		VALUES (:id, :name, :code, :year, :division, :teacher_id, :is_active, :created_at, :updated_at)`, r)
	if err != nil {
		if isUniqueViolation(err) {
			return school.Subject{}, school.ErrCodeExists
		}
		return school.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return repo.unrowSubject(r), nil
}

func (repo schoolRepository) GetSubjectByID(ctx context.Context, id string) (school.Subject, error) {
	var r subjectRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM subject WHERE id = $1`, id); err != nil {
		return school.Subject{}, trapNoRowsErr(err, school.ErrSubjectNotFound, "getting subject")
	}
	return repo.unrowSubject(r), nil
}

func (repo schoolRepository) querySubjects(ctx context.Context, query string, args ...interface{}) ([]school.Subject, error) {
	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]school.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, repo.unrowSubject(r))
	}
	return subjects, nil
}

func (repo schoolRepository) QuerySubjects(ctx context.Context) ([]school.Subject, error) {
	return repo.querySubjects(ctx, `SELECT * FROM subject ORDER BY year, name`)
}

func (repo schoolRepository) QuerySubjectsByTeacher(ctx context.Context, teacherID string) ([]school.Subject, error) {
	return repo.querySubjects(ctx,
		`SELECT * FROM subject WHERE teacher_id = $1 AND is_active ORDER BY year, name`, teacherID)
}

func (repo schoolRepository) QuerySubjectsByStudent(ctx context.Context, studentID string) ([]school.Subject, error) {
	return repo.querySubjects(ctx, `
		SELECT s.* FROM subject s
		JOIN student_subject ss ON ss.subject_id = s.id
		WHERE ss.student_id = $1 AND ss.is_active AND s.is_active
		ORDER BY s.year, s.name`, studentID)
}

func (repo schoolRepository) UpdateSubject(ctx context.Context, s school.Subject) (school.Subject, error) {
	r := repo.subjectRow(s)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE subject
		SET name = :name, code = :code, year = :year, division = :division,
		    teacher_id = :teacher_id, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`, r)
	if err != nil {
		if isUniqueViolation(err) {
			return school.Subject{}, school.ErrCodeExists
		}
		return school.Subject{}, errors.Wrap(err, "updating subject")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Subject{}, school.ErrSubjectNotFound
	}
	return repo.unrowSubject(r), nil
}

func (repo schoolRepository) DeactivateSubject(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE subject SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return errors.Wrap(err, "deactivating subject")
}

func (repo schoolRepository) UpsertEnrollment(ctx context.Context, studentID, subjectID string) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO student_subject (student_id, subject_id, is_active, created_at)
		VALUES ($1, $2, TRUE, NOW())
		ON CONFLICT (student_id, subject_id) DO UPDATE SET is_active = TRUE`,
		studentID, subjectID)
	return errors.Wrap(err, "upserting enrollment")
}

func (repo schoolRepository) RemoveEnrollment(ctx context.Context, studentID, subjectID string) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE student_subject SET is_active = FALSE WHERE student_id = $1 AND subject_id = $2`,
		studentID, subjectID)
	return errors.Wrap(err, "removing enrollment")
}

func (repo schoolRepository) IsEnrolled(ctx context.Context, studentID, subjectID string) (bool, error) {
	var enrolled bool
	err := repo.db.GetContext(ctx, &enrolled, `
		SELECT EXISTS (
			SELECT 1 FROM student_subject
			WHERE student_id = $1 AND subject_id = $2 AND is_active
		)`, studentID, subjectID)
	return enrolled, errors.Wrap(err, "checking enrollment")
}

func (repo schoolRepository) QueryEnrolledStudentIDs(ctx context.Context, subjectID string) ([]string, error) {
	var ids []string
	err := repo.db.SelectContext(ctx, &ids,
		`SELECT student_id FROM student_subject WHERE subject_id = $1 AND is_active`, subjectID)
	return ids, errors.Wrap(err, "querying enrolled students")
}

type unitRow struct {
	ID        string    `db:"id"`
	SubjectID string    `db:"subject_id"`
	Title     string    `db:"title"`
	Position  int       `db:"position"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (repo schoolRepository) unrowUnit(r unitRow) school.Unit {
	return school.Unit(r)
}

func (repo schoolRepository) CreateUnit(ctx context.Context, u school.Unit) (school.Unit, error) {
	u.ID = uuid.New().String()
	r := unitRow(u)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO unit (id, subject_id, title, position, is_active, created_at, updated_at)
		VALUES (:id, :subject_id, :title, :position, :is_active, :created_at, :updated_at)`, r)
	if err != nil {
		return school.Unit{}, errors.Wrap(err, "inserting unit")
	}
	return repo.unrowUnit(r), nil
}

func (repo schoolRepository) GetUnitByID(ctx context.Context, id string) (school.Unit, error) {
	var r unitRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM unit WHERE id = $1`, id); err != nil {
		return school.Unit{}, trapNoRowsErr(err, school.ErrUnitNotFound, "getting unit")
	}
	return repo.unrowUnit(r), nil
}

func (repo schoolRepository) QueryUnits(ctx context.Context, subjectID string) ([]school.Unit, error) {
	var rows []unitRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM unit WHERE subject_id = $1 AND is_active ORDER BY position, created_at`, subjectID)
	if err != nil {
		return nil, errors.Wrap(err, "querying units")
	}
	units := make([]school.Unit, 0, len(rows))
	for _, r := range rows {
		units = append(units, repo.unrowUnit(r))
	}
	return units, nil
}

func (repo schoolRepository) UpdateUnit(ctx context.Context, u school.Unit) (school.Unit, error) {
	r := unitRow(u)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE unit
		SET title = :title, position = :position, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`, r)
	if err != nil {
		return school.Unit{}, errors.Wrap(err, "updating unit")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Unit{}, school.ErrUnitNotFound
	}
	return repo.unrowUnit(r), nil
}

func (repo schoolRepository) DeactivateUnit(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE unit SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return errors.Wrap(err, "deactivating unit")
}

type contentRow struct {
	ID        string      `db:"id"`
	UnitID    string      `db:"unit_id"`
	Kind      string      `db:"kind"`
	Title     string      `db:"title"`
	Body      null.String `db:"body"`
	URL       null.String `db:"url"`
	IsActive  bool        `db:"is_active"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (repo schoolRepository) contentRow(c school.Content) contentRow {
	return contentRow{
		ID:        c.ID,
		UnitID:    c.UnitID,
		Kind:      c.Kind,
		Title:     c.Title,
		Body:      null.NewString(c.Body, c.Body != ""),
		URL:       null.NewString(c.URL, c.URL != ""),
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func (repo schoolRepository) unrowContent(r contentRow) school.Content {
	return school.Content{
		ID:        r.ID,
		UnitID:    r.UnitID,
		Kind:      r.Kind,
		Title:     r.Title,
		Body:      r.Body.String,
		URL:       r.URL.String,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (repo schoolRepository) CreateContent(ctx context.Context, c school.Content) (school.Content, error) {
	c.ID = uuid.New().String()
	r := repo.contentRow(c)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO content (id, unit_id, kind, title, body, url, is_active, created_at, updated_at)
		VALUES (:id, :unit_id, :kind, :title, :body, :url, :is_active, :created_at, :updated_at)`, r)
	if err != nil {
		return school.Content{}, errors.Wrap(err, "inserting content")
	}
	return repo.unrowContent(r), nil
}

func (repo schoolRepository) GetContentByID(ctx context.Context, id string) (school.Content, error) {
	var r contentRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM content WHERE id = $1`, id); err != nil {
		return school.Content{}, trapNoRowsErr(err, school.ErrContentNotFound, "getting content")
	}
	return repo.unrowContent(r), nil
}

func (repo schoolRepository) QueryContents(ctx context.Context, unitID string) ([]school.Content, error) {
	var rows []contentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM content WHERE unit_id = $1 AND is_active ORDER BY created_at`, unitID)
	if err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}
	contents := make([]school.Content, 0, len(rows))
	for _, r := range rows {
		contents = append(contents, repo.unrowContent(r))
	}
	return contents, nil
}

func (repo schoolRepository) DeactivateContent(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE content SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return errors.Wrap(err, "deactivating content")
}

type documentRow struct {
	ID         string    `db:"id"`
	SubjectID  string    `db:"subject_id"`
	UploaderID string    `db:"uploader_id"`
	Title      string    `db:"title"`
	URL        string    `db:"url"`
	IsPublic   bool      `db:"is_public"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
}

func (repo schoolRepository) CreateDocument(ctx context.Context, d school.Document) (school.Document, error) {
	d.ID = uuid.New().String()
	r := documentRow(d)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO document (id, subject_id, uploader_id, title, url, is_public, is_active, created_at)
		VALUES (:id, :subject_id, :uploader_id, :title, :url, :is_public, :is_active, :created_at)`, r)
	if err != nil {
		return school.Document{}, errors.Wrap(err, "inserting document")
	}
	return school.Document(r), nil
}

func (repo schoolRepository) GetDocumentByID(ctx context.Context, id string) (school.Document, error) {
	var r documentRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM document WHERE id = $1`, id); err != nil {
		return school.Document{}, trapNoRowsErr(err, school.ErrDocumentNotFound, "getting document")
	}
	return school.Document(r), nil
}

func (repo schoolRepository) QueryDocuments(ctx context.Context, subjectID string) ([]school.Document, error) {
	var rows []documentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM document WHERE subject_id = $1 AND is_active ORDER BY created_at DESC`, subjectID)
	if err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}
	docs := make([]school.Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, school.Document(r))
	}
	return docs, nil
}

func (repo schoolRepository) DeactivateDocument(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE document SET is_active = FALSE WHERE id = $1`, id)
	return errors.Wrap(err, "deactivating document")
}
