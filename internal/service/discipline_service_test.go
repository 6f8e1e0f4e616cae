package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sgacad/sgacad-api/internal/models"
	appErrors "github.com/sgacad/sgacad-api/pkg/errors"
)

type fakeDisciplineRepo struct {
	disciplines map[string]*models.Discipline
	prereqs     map[string][]string
	inUse       map[string]bool
	nextID      int
}

func newFakeDisciplineRepo() *fakeDisciplineRepo {
	return &fakeDisciplineRepo{
		disciplines: make(map[string]*models.Discipline),
		prereqs:     make(map[string][]string),
		inUse:       make(map[string]bool),
	}
}

func (f *fakeDisciplineRepo) List(ctx context.Context) ([]models.DisciplineDetail, error) {
	var list []models.DisciplineDetail
	for id, d := range f.disciplines {
		prereqs, _ := f.Prerequisites(ctx, id)
		list = append(list, models.DisciplineDetail{Discipline: *d, Prerequisites: prereqs})
	}
	return list, nil
}

func (f *fakeDisciplineRepo) FindByID(ctx context.Context, id string) (*models.Discipline, error) {
	if d, ok := f.disciplines[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDisciplineRepo) Prerequisites(ctx context.Context, id string) ([]models.Discipline, error) {
	var list []models.Discipline
	for _, prereqID := range f.prereqs[id] {
		if d, ok := f.disciplines[prereqID]; ok {
			list = append(list, *d)
		}
	}
	return list, nil
}

func (f *fakeDisciplineRepo) CodeExists(ctx context.Context, code, excludeID string) (bool, error) {
	for _, d := range f.disciplines {
		if d.Code == code && d.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDisciplineRepo) Create(ctx context.Context, discipline *models.Discipline, prerequisiteIDs []string) error {
	f.nextID++
	if discipline.ID == "" {
		discipline.ID = fmt.Sprintf("d%d", f.nextID)
	}
	copied := *discipline
	f.disciplines[discipline.ID] = &copied
	f.prereqs[discipline.ID] = prerequisiteIDs
	return nil
}

func (f *fakeDisciplineRepo) Update(ctx context.Context, id string, req models.UpdateDisciplineRequest) error {
	d, ok := f.disciplines[id]
	if !ok {
		return sql.ErrNoRows
	}
	if req.Code != "" {
		d.Code = req.Code
	}
	if req.Name != "" {
		d.Name = req.Name
	}
	if req.Credits != nil {
		d.Credits = *req.Credits
	}
	if req.Prerequisites != nil {
		f.prereqs[id] = *req.Prerequisites
	}
	return nil
}

func (f *fakeDisciplineRepo) Delete(ctx context.Context, id string) error {
	delete(f.disciplines, id)
	delete(f.prereqs, id)
	return nil
}

func (f *fakeDisciplineRepo) InUse(ctx context.Context, id string) (bool, error) {
	return f.inUse[id], nil
}

func newDisciplineFixture() (*DisciplineService, *fakeDisciplineRepo) {
	repo := newFakeDisciplineRepo()
	svc := NewDisciplineService(repo, nil, nil, zap.NewNop())
	return svc, repo
}

func seedDiscipline(repo *fakeDisciplineRepo, id, code string) {
	repo.disciplines[id] = &models.Discipline{ID: id, Code: code, Name: "Discipline " + code, Credits: 4}
}

func TestDisciplineServiceCreateWithPrerequisites(t *testing.T) {
	svc, repo := newDisciplineFixture()
	seedDiscipline(repo, "3b000000-0000-0000-0000-000000000001", "MAT101")

	detail, err := svc.Create(context.Background(), models.CreateDisciplineRequest{
		Code:          "MAT201",
		Name:          "Calculus II",
		Credits:       4,
		Prerequisites: []string{"3b000000-0000-0000-0000-000000000001"},
	})
	require.NoError(t, err)
	require.Len(t, detail.Prerequisites, 1)
	assert.Equal(t, "MAT101", detail.Prerequisites[0].Code)
}

func TestDisciplineServiceCreateDuplicateCode(t *testing.T) {
	svc, repo := newDisciplineFixture()
	seedDiscipline(repo, "3b000000-0000-0000-0000-000000000001", "MAT101")

	_, err := svc.Create(context.Background(), models.CreateDisciplineRequest{
		Code:    "MAT101",
		Name:    "Calculus I",
		Credits: 4,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestDisciplineServiceCreateUnknownPrerequisite(t *testing.T) {
	svc, _ := newDisciplineFixture()

	_, err := svc.Create(context.Background(), models.CreateDisciplineRequest{
		Code:          "MAT201",
		Name:          "Calculus II",
		Credits:       4,
		Prerequisites: []string{"3b000000-0000-0000-0000-00000000dead"},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestDisciplineServiceUpdateReplacesPrerequisiteSet(t *testing.T) {
	svc, repo := newDisciplineFixture()
	seedDiscipline(repo, "3b000000-0000-0000-0000-000000000001", "MAT101")
	seedDiscipline(repo, "3b000000-0000-0000-0000-000000000002", "FIS101")
	seedDiscipline(repo, "3b000000-0000-0000-0000-000000000003", "MAT201")
	repo.prereqs["3b000000-0000-0000-0000-000000000003"] = []string{"3b000000-0000-0000-0000-000000000001"}

	newSet := []string{"3b000000-0000-0000-0000-000000000002"}
	detail, err := svc.Update(context.Background(), "3b000000-0000-0000-0000-000000000003",
		models.UpdateDisciplineRequest{Prerequisites: &newSet})
	require.NoError(t, err)
	require.Len(t, detail.Prerequisites, 1)
	assert.Equal(t, "FIS101", detail.Prerequisites[0].Code)
}

func TestDisciplineServiceUpdateSelfPrerequisiteRejected(t *testing.T) {
	svc, repo := newDisciplineFixture()
	seedDiscipline(repo, "3b000000-0000-0000-0000-000000000001", "MAT101")

	self := []string{"3b000000-0000-0000-0000-000000000001"}
	_, err := svc.Update(context.Background(), "3b000000-0000-0000-0000-000000000001",
		models.UpdateDisciplineRequest{Prerequisites: &self})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestDisciplineServiceDeleteInUseRejected(t *testing.T) {
	svc, repo := newDisciplineFixture()
	seedDiscipline(repo, "3b000000-0000-0000-0000-000000000001", "MAT101")
	repo.inUse["3b000000-0000-0000-0000-000000000001"] = true

	err := svc.Delete(context.Background(), "3b000000-0000-0000-0000-000000000001")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	repo.inUse["3b000000-0000-0000-0000-000000000001"] = false
	require.NoError(t, svc.Delete(context.Background(), "3b000000-0000-0000-0000-000000000001"))
}
