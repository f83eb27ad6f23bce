package event

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventrepo "github.com/ouarsenis/thawra-api/internal/repositories/event"
	"github.com/ouarsenis/thawra-api/pkg/models"
)

type fakeEventRepo struct {
	created      *models.Event
	createdLinks eventrepo.Links
	updated      *models.Event
	updatedLinks eventrepo.Links
	statusID     string
	status       models.ReviewStatus
	statusBy     *string
	byID         map[string]*models.Event
}

func (f *fakeEventRepo) List(ctx context.Context, q models.EventListQuery) ([]models.Event, int, error) {
	return nil, 0, nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*models.Event, error) {
	if f.byID == nil {
		return f.created, nil
	}
	return f.byID[id], nil
}

func (f *fakeEventRepo) ListByRegionCode(ctx context.Context, code string) ([]models.Event, error) {
	return nil, nil
}

func (f *fakeEventRepo) Statistics(ctx context.Context) (*models.EventStatistics, error) {
	return &models.EventStatistics{}, nil
}

func (f *fakeEventRepo) Create(ctx context.Context, event *models.Event, links eventrepo.Links) error {
	f.created = event
	f.createdLinks = links
	return nil
}

func (f *fakeEventRepo) Update(ctx context.Context, event *models.Event, links eventrepo.Links) error {
	f.updated = event
	f.updatedLinks = links
	return nil
}

func (f *fakeEventRepo) UpdateStatus(ctx context.Context, id string, status models.ReviewStatus, updatedBy *string) error {
	f.statusID = id
	f.status = status
	f.statusBy = updatedBy
	return nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	return nil
}

type fakeRegionRepo struct {
	regions map[string]*models.Region
}

func (f *fakeRegionRepo) GetByID(ctx context.Context, id string) (*models.Region, error) {
	return f.regions[id], nil
}

func (f *fakeRegionRepo) GetByCode(ctx context.Context, code string) (*models.Region, error) {
	return f.regions[code], nil
}

func newTestService(events *fakeEventRepo, regions *fakeRegionRepo) *Service {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewService(events, regions, logger)
}

func validCreateRequest() models.CreateEventRequest {
	return models.CreateEventRequest{
		Title:       "معركة سيدي إبراهيم الكبرى",
		Type:        models.EventTypeBattle,
		RegionID:    "region-1",
		StartDate:   "1845-09-23",
		EndDate:     "1845-09-26",
		Description: "اشتباك كبير بين قوات المقاومة والجيش الفرنسي قرب الحدود المغربية",
	}
}

func TestCreateForcesDraftStatus(t *testing.T) {
	repo := &fakeEventRepo{}
	regions := &fakeRegionRepo{regions: map[string]*models.Region{"region-1": {ID: "region-1"}}}
	svc := newTestService(repo, regions)

	req := validCreateRequest()
	req.ReviewStatus = models.ReviewStatusConfirmed // must be ignored

	_, err := svc.Create(context.Background(), req, "user-1")
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.ReviewStatusDraft, repo.created.ReviewStatus)
}

func TestCreateRecordsAuthor(t *testing.T) {
	repo := &fakeEventRepo{}
	regions := &fakeRegionRepo{regions: map[string]*models.Region{"region-1": {ID: "region-1"}}}
	svc := newTestService(repo, regions)

	_, err := svc.Create(context.Background(), validCreateRequest(), "user-7")
	require.NoError(t, err)
	require.NotNil(t, repo.created.CreatedByID)
	assert.Equal(t, "user-7", *repo.created.CreatedByID)
	require.NotNil(t, repo.created.UpdatedByID)
	assert.Equal(t, "user-7", *repo.created.UpdatedByID)
}

func TestCreatePassesRelationsAsLinks(t *testing.T) {
	repo := &fakeEventRepo{}
	regions := &fakeRegionRepo{regions: map[string]*models.Region{"region-1": {ID: "region-1"}}}
	svc := newTestService(repo, regions)

	req := validCreateRequest()
	req.SourceIDs = []string{"source-1", "source-2"}
	req.People = []models.PersonAssignment{{PersonID: "person-1", Role: "قائد"}}
	req.TagIDs = []string{"tag-1"}

	_, err := svc.Create(context.Background(), req, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"source-1", "source-2"}, repo.createdLinks.SourceIDs)
	assert.Equal(t, []models.PersonAssignment{{PersonID: "person-1", Role: "قائد"}}, repo.createdLinks.People)
	assert.Equal(t, []string{"tag-1"}, repo.createdLinks.TagIDs)
}

func TestCreateRejectsDatesOutsidePeriod(t *testing.T) {
	repo := &fakeEventRepo{}
	regions := &fakeRegionRepo{regions: map[string]*models.Region{"region-1": {ID: "region-1"}}}
	svc := newTestService(repo, regions)

	tests := []struct {
		name      string
		startDate string
	}{
		{"before 1830", "1829-12-31"},
		{"after 1954", "1955-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			req.StartDate = tt.startDate
			req.EndDate = ""

			_, err := svc.Create(context.Background(), req, "user-1")
			require.Error(t, err)
			assert.Equal(t, 400, httperror.GetStatusCode(err))
			assert.Nil(t, repo.created)
		})
	}
}

func TestCreateRejectsEndBeforeStart(t *testing.T) {
	repo := &fakeEventRepo{}
	regions := &fakeRegionRepo{regions: map[string]*models.Region{"region-1": {ID: "region-1"}}}
	svc := newTestService(repo, regions)

	req := validCreateRequest()
	req.StartDate = "1845-09-26"
	req.EndDate = "1845-09-23"

	_, err := svc.Create(context.Background(), req, "user-1")
	require.Error(t, err)
	assert.Equal(t, 400, httperror.GetStatusCode(err))
}

func TestCreateRejectsUnknownRegion(t *testing.T) {
	repo := &fakeEventRepo{}
	regions := &fakeRegionRepo{regions: map[string]*models.Region{}}
	svc := newTestService(repo, regions)

	_, err := svc.Create(context.Background(), validCreateRequest(), "user-1")
	require.Error(t, err)
	assert.Equal(t, 400, httperror.GetStatusCode(err))
	assert.Nil(t, repo.created)
}

func TestUpdateMergesOntoExisting(t *testing.T) {
	start := time.Date(1845, 9, 23, 0, 0, 0, 0, time.UTC)
	existing := &models.Event{
		ID:          "event-1",
		Title:       "العنوان الأصلي للمعركة",
		Type:        models.EventTypeBattle,
		RegionID:    "region-1",
		StartDate:   start,
		Description: "الوصف الأصلي للحدث كما سجله المحررون أول مرة",
	}
	repo := &fakeEventRepo{byID: map[string]*models.Event{"event-1": existing}}
	regions := &fakeRegionRepo{regions: map[string]*models.Region{"region-1": {ID: "region-1"}}}
	svc := newTestService(repo, regions)

	title := "عنوان محدث بعد المراجعة التاريخية"
	_, err := svc.Update(context.Background(), "event-1", models.UpdateEventRequest{Title: &title}, "user-2")
	require.NoError(t, err)
	require.NotNil(t, repo.updated)
	assert.Equal(t, title, repo.updated.Title)
	// Untouched fields survive the merge.
	assert.Equal(t, models.EventTypeBattle, repo.updated.Type)
	assert.Equal(t, start, repo.updated.StartDate)
	require.NotNil(t, repo.updated.UpdatedByID)
	assert.Equal(t, "user-2", *repo.updated.UpdatedByID)
}

func TestUpdateNilRelationsLeaveLinksAlone(t *testing.T) {
	existing := &models.Event{
		ID:          "event-1",
		Title:       "العنوان الأصلي للمعركة",
		Type:        models.EventTypeBattle,
		RegionID:    "region-1",
		StartDate:   time.Date(1845, 9, 23, 0, 0, 0, 0, time.UTC),
		Description: "الوصف الأصلي للحدث كما سجله المحررون أول مرة",
	}
	repo := &fakeEventRepo{byID: map[string]*models.Event{"event-1": existing}}
	regions := &fakeRegionRepo{regions: map[string]*models.Region{"region-1": {ID: "region-1"}}}
	svc := newTestService(repo, regions)

	title := "عنوان جديد بدون تعديل العلاقات"
	_, err := svc.Update(context.Background(), "event-1", models.UpdateEventRequest{Title: &title}, "user-2")
	require.NoError(t, err)
	assert.Nil(t, repo.updatedLinks.SourceIDs)
	assert.Nil(t, repo.updatedLinks.People)
	assert.Nil(t, repo.updatedLinks.TagIDs)
}

func TestUpdateEmptyRelationSliceClearsLinks(t *testing.T) {
	existing := &models.Event{
		ID:          "event-1",
		Title:       "العنوان الأصلي للمعركة",
		Type:        models.EventTypeBattle,
		RegionID:    "region-1",
		StartDate:   time.Date(1845, 9, 23, 0, 0, 0, 0, time.UTC),
		Description: "الوصف الأصلي للحدث كما سجله المحررون أول مرة",
	}
	repo := &fakeEventRepo{byID: map[string]*models.Event{"event-1": existing}}
	regions := &fakeRegionRepo{regions: map[string]*models.Region{"region-1": {ID: "region-1"}}}
	svc := newTestService(repo, regions)

	empty := []string{}
	_, err := svc.Update(context.Background(), "event-1", models.UpdateEventRequest{SourceIDs: &empty}, "user-2")
	require.NoError(t, err)
	// Non-nil but empty means "replace with nothing", not "leave alone".
	assert.NotNil(t, repo.updatedLinks.SourceIDs)
	assert.Empty(t, repo.updatedLinks.SourceIDs)
}

func TestUpdateUnknownEventIs404(t *testing.T) {
	repo := &fakeEventRepo{byID: map[string]*models.Event{}}
	regions := &fakeRegionRepo{regions: map[string]*models.Region{}}
	svc := newTestService(repo, regions)

	title := "أي عنوان"
	_, err := svc.Update(context.Background(), "missing", models.UpdateEventRequest{Title: &title}, "user-2")
	require.Error(t, err)
	assert.Equal(t, 404, httperror.GetStatusCode(err))
}

func TestUpdateStatusOnlyTouchesStatus(t *testing.T) {
	existing := &models.Event{ID: "event-1"}
	repo := &fakeEventRepo{byID: map[string]*models.Event{"event-1": existing}}
	svc := newTestService(repo, &fakeRegionRepo{})

	_, err := svc.UpdateStatus(context.Background(), "event-1", models.ReviewStatusConfirmed, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "event-1", repo.statusID)
	assert.Equal(t, models.ReviewStatusConfirmed, repo.status)
	require.NotNil(t, repo.statusBy)
	assert.Equal(t, "admin-1", *repo.statusBy)
	// The full update path was never taken.
	assert.Nil(t, repo.updated)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	repo := &fakeEventRepo{}
	svc := newTestService(repo, &fakeRegionRepo{})

	_, err := svc.UpdateStatus(context.Background(), "event-1", "PUBLISHED", "admin-1")
	require.Error(t, err)
	assert.Equal(t, 400, httperror.GetStatusCode(err))
	assert.Empty(t, repo.statusID)
}

func TestGetUnknownEventIs404(t *testing.T) {
	repo := &fakeEventRepo{byID: map[string]*models.Event{}}
	svc := newTestService(repo, &fakeRegionRepo{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, 404, httperror.GetStatusCode(err))
}

func TestListNormalizesPaging(t *testing.T) {
	repo := &fakeEventRepo{}
	svc := newTestService(repo, &fakeRegionRepo{})

	resp, err := svc.List(context.Background(), models.EventListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.Limit)
}
