package source

import (
	"context"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ouarsenis/thawra-api/pkg/models"
)

type fakeSourceRepo struct {
	sources   map[string]*models.Source
	citations map[string]int
	deleted   []string
}

func (f *fakeSourceRepo) List(ctx context.Context) ([]models.Source, error) { return nil, nil }

func (f *fakeSourceRepo) GetByID(ctx context.Context, id string) (*models.Source, error) {
	return f.sources[id], nil
}

func (f *fakeSourceRepo) CitingEvents(ctx context.Context, sourceID string) ([]models.Event, error) {
	return nil, nil
}

func (f *fakeSourceRepo) Search(ctx context.Context, term string) ([]models.Source, error) {
	return nil, nil
}

func (f *fakeSourceRepo) Create(ctx context.Context, source *models.Source) error { return nil }
func (f *fakeSourceRepo) Update(ctx context.Context, source *models.Source) error { return nil }

func (f *fakeSourceRepo) CitationCount(ctx context.Context, sourceID string) (int, error) {
	return f.citations[sourceID], nil
}

func (f *fakeSourceRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestService(repo *fakeSourceRepo) *Service {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewService(repo, logger)
}

func TestDeleteBlockedWhileCited(t *testing.T) {
	repo := &fakeSourceRepo{
		sources:   map[string]*models.Source{"source-1": {ID: "source-1"}},
		citations: map[string]int{"source-1": 3},
	}
	svc := newTestService(repo)

	err := svc.Delete(context.Background(), "source-1")
	require.Error(t, err)
	assert.Equal(t, 409, httperror.GetStatusCode(err))
	assert.Empty(t, repo.deleted)
}

func TestDeleteUncitedSource(t *testing.T) {
	repo := &fakeSourceRepo{
		sources:   map[string]*models.Source{"source-1": {ID: "source-1"}},
		citations: map[string]int{},
	}
	svc := newTestService(repo)

	err := svc.Delete(context.Background(), "source-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"source-1"}, repo.deleted)
}

func TestDeleteUnknownSourceIs404(t *testing.T) {
	repo := &fakeSourceRepo{sources: map[string]*models.Source{}}
	svc := newTestService(repo)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, 404, httperror.GetStatusCode(err))
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc := newTestService(&fakeSourceRepo{})

	_, err := svc.Create(context.Background(), models.CreateSourceRequest{
		Title: "تاريخ الجزائر الثقافي",
		Type:  "PODCAST",
	})
	require.Error(t, err)
	assert.Equal(t, 400, httperror.GetStatusCode(err))
}

func TestSearchEmptyTermShortCircuits(t *testing.T) {
	svc := newTestService(&fakeSourceRepo{})

	sources, err := svc.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, sources)
}
