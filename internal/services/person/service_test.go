package person

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ouarsenis/thawra-api/pkg/models"
)

type fakePersonRepo struct {
	byID     map[string]*models.Person
	created  *models.Person
	updated  *models.Person
	deleted  []string
	imported []models.CreatePersonRequest
}

func (f *fakePersonRepo) List(ctx context.Context) ([]models.Person, error) {
	return nil, nil
}

func (f *fakePersonRepo) GetByID(ctx context.Context, id string) (*models.Person, error) {
	return f.byID[id], nil
}

func (f *fakePersonRepo) Create(ctx context.Context, person *models.Person) error {
	f.created = person
	return nil
}

func (f *fakePersonRepo) Update(ctx context.Context, person *models.Person) error {
	f.updated = person
	return nil
}

func (f *fakePersonRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePersonRepo) Import(ctx context.Context, people []models.CreatePersonRequest) (*models.ImportPeopleResponse, error) {
	f.imported = people
	return &models.ImportPeopleResponse{Imported: len(people)}, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestImportEmptyBatchIsRejected(t *testing.T) {
	repo := &fakePersonRepo{}
	svc := NewService(repo, testLogger())

	_, err := svc.Import(context.Background(), models.ImportPeopleRequest{})

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	assert.Nil(t, repo.imported)
}

func TestImportPassesBatchThrough(t *testing.T) {
	repo := &fakePersonRepo{}
	svc := NewService(repo, testLogger())

	req := models.ImportPeopleRequest{People: []models.CreatePersonRequest{
		{NameAr: "الأمير عبد القادر", ExternalRef: "emir-abdelkader"},
		{NameAr: "لالة فاطمة نسومر", ExternalRef: "lalla-fatma-nsoumer"},
	}}

	result, err := svc.Import(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Len(t, repo.imported, 2)
}

func TestCreateMapsOptionalFieldsToPointers(t *testing.T) {
	repo := &fakePersonRepo{}
	svc := NewService(repo, testLogger())

	person, err := svc.Create(context.Background(), models.CreatePersonRequest{
		NameAr: "الشيخ بوعمامة",
		Role:   "قائد مقاومة",
	})

	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.NotEmpty(t, person.ID)
	require.NotNil(t, person.Role)
	assert.Equal(t, "قائد مقاومة", *person.Role)
	assert.Nil(t, person.NameEn)
	assert.Nil(t, person.ExternalRef)
}

func TestCreateRejectsDeathBeforeBirth(t *testing.T) {
	repo := &fakePersonRepo{}
	svc := NewService(repo, testLogger())

	birth, death := 1900, 1850
	_, err := svc.Create(context.Background(), models.CreatePersonRequest{
		NameAr:    "شخصية اختبار",
		BirthYear: &birth,
		DeathYear: &death,
	})

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	assert.Nil(t, repo.created)
}

func TestUpdateRejectsDeathBeforeExistingBirth(t *testing.T) {
	birth := 1870
	repo := &fakePersonRepo{byID: map[string]*models.Person{
		"p1": {ID: "p1", NameAr: "الأمير عبد القادر", BirthYear: &birth},
	}}
	svc := NewService(repo, testLogger())

	// Only deathYear changes; the conflict is with the stored birthYear.
	death := 1820
	_, err := svc.Update(context.Background(), "p1", models.UpdatePersonRequest{DeathYear: &death})

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	assert.Nil(t, repo.updated)
}

func TestImportRejectsDeathBeforeBirth(t *testing.T) {
	repo := &fakePersonRepo{}
	svc := NewService(repo, testLogger())

	birth, death := 1900, 1850
	req := models.ImportPeopleRequest{People: []models.CreatePersonRequest{
		{NameAr: "لالة فاطمة نسومر", ExternalRef: "lalla-fatma-nsoumer"},
		{NameAr: "شخصية اختبار", BirthYear: &birth, DeathYear: &death},
	}}

	_, err := svc.Import(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	assert.Contains(t, err.Error(), "people[1]")
	assert.Nil(t, repo.imported)
}

func TestUpdateUnknownPersonIs404(t *testing.T) {
	repo := &fakePersonRepo{byID: map[string]*models.Person{}}
	svc := NewService(repo, testLogger())

	name := "اسم جديد"
	_, err := svc.Update(context.Background(), "missing", models.UpdatePersonRequest{NameAr: &name})

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	assert.Nil(t, repo.updated)
}
