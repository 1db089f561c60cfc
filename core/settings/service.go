// Package settings holds the single persisted app-settings row: the
// maintenance flag and the teacher allow-list. Mutations go through the
// store — there is no in-memory list that vanishes on restart.
package settings

import (
	"context"
	"time"

	"github.com/aulanet/campus/core"
)

type Settings struct {
	MaintenanceMode  bool      `json:"maintenance_mode"`
	RetryAfterSecs   int       `json:"retry_after_secs"`
	TeacherAllowList []string  `json:"teacher_allow_list"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type UpdateSettings struct {
	MaintenanceMode  *bool    `json:"maintenance_mode"`
	RetryAfterSecs   *int     `json:"retry_after_secs"`
	TeacherAllowList []string `json:"teacher_allow_list"` // nil = unchanged
}

type Repository interface {
	GetSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) (Settings, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Get(ctx context.Context) (Settings, error) {
	return svc.repo.GetSettings(ctx)
}

func (svc *Service) Update(ctx context.Context, us UpdateSettings) (Settings, error) {
	s, err := svc.repo.GetSettings(ctx)
	if err != nil {
		return Settings{}, err
	}
	if us.MaintenanceMode != nil {
		s.MaintenanceMode = *us.MaintenanceMode
	}
	if us.RetryAfterSecs != nil {
		s.RetryAfterSecs = *us.RetryAfterSecs
	}
	if us.TeacherAllowList != nil {
		cleaned := make([]string, 0, len(us.TeacherAllowList))
		for _, email := range us.TeacherAllowList {
			if email = core.CleanString(email, true /* lower */); email != "" {
				cleaned = append(cleaned, email)
			}
		}
		s.TeacherAllowList = cleaned
	}
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.SaveSettings(ctx, s)
}

// TeacherAllowed reports whether an email may be assigned as a subject
// teacher. An empty list means no restriction.
func (svc *Service) TeacherAllowed(ctx context.Context, email string) (bool, error) {
	s, err := svc.repo.GetSettings(ctx)
	if err != nil {
		return false, err
	}
	if len(s.TeacherAllowList) == 0 {
		return true, nil
	}
	email = core.CleanString(email, true)
	for _, allowed := range s.TeacherAllowList {
		if allowed == email {
			return true, nil
		}
	}
	return false, nil
}
