package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	row Settings
}

func (r *fakeRepo) GetSettings(context.Context) (Settings, error) { return r.row, nil }
func (r *fakeRepo) SaveSettings(_ context.Context, s Settings) (Settings, error) {
	r.row = s
	return s, nil
}

func TestService_Update_partial(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{row: Settings{RetryAfterSecs: 60, TeacherAllowList: []string{"a@x.edu"}}}
	svc := NewService(repo)

	on := true
	s, err := svc.Update(ctx, UpdateSettings{MaintenanceMode: &on})
	require.NoError(t, err)
	assert.True(t, s.MaintenanceMode)
	// untouched fields survive
	assert.Equal(t, 60, s.RetryAfterSecs)
	assert.Equal(t, []string{"a@x.edu"}, s.TeacherAllowList)
	assert.False(t, s.UpdatedAt.IsZero())

	// a nil list means unchanged; an empty list clears it
	s, err = svc.Update(ctx, UpdateSettings{TeacherAllowList: []string{}})
	require.NoError(t, err)
	assert.Empty(t, s.TeacherAllowList)
	assert.True(t, s.MaintenanceMode)
}

func TestService_Update_cleansAllowList(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	s, err := svc.Update(context.Background(), UpdateSettings{
		TeacherAllowList: []string{" Profe@Test.EDU ", "", "otra@test.edu"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"profe@test.edu", "otra@test.edu"}, s.TeacherAllowList)
}

func TestService_TeacherAllowed(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := NewService(repo)

	// empty list: no restriction
	ok, err := svc.TeacherAllowed(ctx, "cualquiera@test.edu")
	require.NoError(t, err)
	assert.True(t, ok)

	repo.row.TeacherAllowList = []string{"profe@test.edu"}

	ok, err = svc.TeacherAllowed(ctx, " PROFE@test.edu ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.TeacherAllowed(ctx, "intruso@test.edu")
	require.NoError(t, err)
	assert.False(t, ok)
}
