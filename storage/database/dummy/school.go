package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aulanet/campus/core/school"
)

type schoolRepository struct {
	db *schoolTables
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db.school}
}

func (repo *schoolRepository) CreateSubject(_ context.Context, s school.Subject) (school.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.subjects {
		if existing.Code == s.Code {
			return school.Subject{}, school.ErrCodeExists
		}
	}
	s.ID = uuid.New().String()
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *schoolRepository) GetSubjectByID(_ context.Context, id string) (school.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.subjects[id]; ok {
		return *s, nil
	}
	return school.Subject{}, school.ErrSubjectNotFound
}

func (repo *schoolRepository) querySubjects(match func(school.Subject) bool) []school.Subject {
	subjects := make([]school.Subject, 0)
	for _, s := range repo.db.subjects {
		if match(*s) {
			subjects = append(subjects, *s)
		}
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Year != subjects[j].Year {
			return subjects[i].Year < subjects[j].Year
		}
		return subjects[i].Name < subjects[j].Name
	})
	return subjects
}

func (repo *schoolRepository) QuerySubjects(_ context.Context) ([]school.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.querySubjects(func(school.Subject) bool { return true }), nil
}

func (repo *schoolRepository) QuerySubjectsByTeacher(_ context.Context, teacherID string) ([]school.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.querySubjects(func(s school.Subject) bool {
		return s.TeacherID == teacherID && s.IsActive
	}), nil
}

func (repo *schoolRepository) QuerySubjectsByStudent(ctx context.Context, studentID string) ([]school.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.querySubjects(func(s school.Subject) bool {
		e, ok := repo.db.enrollments[studentID+"/"+s.ID]
		return ok && e.IsActive && s.IsActive
	}), nil
}

func (repo *schoolRepository) UpdateSubject(_ context.Context, s school.Subject) (school.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subjects[s.ID]; !ok {
		return school.Subject{}, school.ErrSubjectNotFound
	}
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *schoolRepository) DeactivateSubject(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if s, ok := repo.db.subjects[id]; ok {
		s.IsActive = false
	}
	return nil
}

func (repo *schoolRepository) UpsertEnrollment(_ context.Context, studentID, subjectID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := studentID + "/" + subjectID
	if e, ok := repo.db.enrollments[key]; ok {
		e.IsActive = true
		return nil
	}
	repo.db.enrollments[key] = &school.Enrollment{
		StudentID: studentID,
		SubjectID: subjectID,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (repo *schoolRepository) RemoveEnrollment(_ context.Context, studentID, subjectID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if e, ok := repo.db.enrollments[studentID+"/"+subjectID]; ok {
		e.IsActive = false
	}
	return nil
}

func (repo *schoolRepository) IsEnrolled(_ context.Context, studentID, subjectID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	e, ok := repo.db.enrollments[studentID+"/"+subjectID]
	return ok && e.IsActive, nil
}

func (repo *schoolRepository) QueryEnrolledStudentIDs(_ context.Context, subjectID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make([]string, 0)
	for _, e := range repo.db.enrollments {
		if e.SubjectID == subjectID && e.IsActive {
			ids = append(ids, e.StudentID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *schoolRepository) CreateUnit(_ context.Context, u school.Unit) (school.Unit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	u.ID = uuid.New().String()
	repo.db.units[u.ID] = &u
	return u, nil
}

func (repo *schoolRepository) GetUnitByID(_ context.Context, id string) (school.Unit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if u, ok := repo.db.units[id]; ok {
		return *u, nil
	}
	return school.Unit{}, school.ErrUnitNotFound
}

func (repo *schoolRepository) QueryUnits(_ context.Context, subjectID string) ([]school.Unit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	units := make([]school.Unit, 0)
	for _, u := range repo.db.units {
		if u.SubjectID == subjectID && u.IsActive {
			units = append(units, *u)
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Position < units[j].Position })
	return units, nil
}

func (repo *schoolRepository) UpdateUnit(_ context.Context, u school.Unit) (school.Unit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.units[u.ID]; !ok {
		return school.Unit{}, school.ErrUnitNotFound
	}
	repo.db.units[u.ID] = &u
	return u, nil
}

func (repo *schoolRepository) DeactivateUnit(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if u, ok := repo.db.units[id]; ok {
		u.IsActive = false
	}
	return nil
}

func (repo *schoolRepository) CreateContent(_ context.Context, c school.Content) (school.Content, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	repo.db.contents[c.ID] = &c
	return c, nil
}

func (repo *schoolRepository) GetContentByID(_ context.Context, id string) (school.Content, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.contents[id]; ok {
		return *c, nil
	}
	return school.Content{}, school.ErrContentNotFound
}

func (repo *schoolRepository) QueryContents(_ context.Context, unitID string) ([]school.Content, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	contents := make([]school.Content, 0)
	for _, c := range repo.db.contents {
		if c.UnitID == unitID && c.IsActive {
			contents = append(contents, *c)
		}
	}
	sort.Slice(contents, func(i, j int) bool { return contents[i].CreatedAt.Before(contents[j].CreatedAt) })
	return contents, nil
}

func (repo *schoolRepository) DeactivateContent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if c, ok := repo.db.contents[id]; ok {
		c.IsActive = false
	}
	return nil
}

func (repo *schoolRepository) CreateDocument(_ context.Context, d school.Document) (school.Document, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	d.ID = uuid.New().String()
	repo.db.documents[d.ID] = &d
	return d, nil
}

func (repo *schoolRepository) GetDocumentByID(_ context.Context, id string) (school.Document, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if d, ok := repo.db.documents[id]; ok {
		return *d, nil
	}
	return school.Document{}, school.ErrDocumentNotFound
}

func (repo *schoolRepository) QueryDocuments(_ context.Context, subjectID string) ([]school.Document, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	docs := make([]school.Document, 0)
	for _, d := range repo.db.documents {
		if d.SubjectID == subjectID && d.IsActive {
			docs = append(docs, *d)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return docs, nil
}

func (repo *schoolRepository) DeactivateDocument(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if d, ok := repo.db.documents[id]; ok {
		d.IsActive = false
	}
	return nil
}
