package mongo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/dischargereport"
)

// fakeCollection is an in-memory double for the narrow collection interface,
// letting these tests run without a live MongoDB server.
type fakeCollection struct {
	mu           sync.Mutex
	indexCreated bool
	docs         map[string]reportDocument
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: make(map[string]reportDocument)}
}

func (f *fakeCollection) FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := filter.(bson.M)
	if !ok {
		return fakeSingleResult{err: errors.New("unsupported filter")}
	}

	if id, ok := m["_id"].(string); ok {
		doc, found := f.docs[id]
		if !found {
			return fakeSingleResult{err: mongodriver.ErrNoDocuments}
		}
		return fakeSingleResult{doc: &doc}
	}

	if patientID, ok := m["patient_id"].(string); ok {
		var latest *reportDocument
		for i := range f.docs {
			doc := f.docs[i]
			if doc.PatientID != patientID {
				continue
			}
			if latest == nil || doc.GeneratedAt.After(latest.GeneratedAt) {
				d := doc
				latest = &d
			}
		}
		if latest == nil {
			return fakeSingleResult{err: mongodriver.ErrNoDocuments}
		}
		return fakeSingleResult{doc: latest}
	}

	return fakeSingleResult{err: mongodriver.ErrNoDocuments}
}

func (f *fakeCollection) UpdateOne(ctx context.Context, filter, update any, opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := filter.(bson.M)
	if !ok {
		return nil, errors.New("unsupported filter")
	}
	id, ok := m["_id"].(string)
	if !ok {
		return nil, errors.New("missing id in filter")
	}

	u, ok := update.(bson.M)
	if !ok {
		return nil, errors.New("unsupported update")
	}
	set, ok := u["$set"].(reportDocument)
	if !ok {
		return nil, errors.New("unsupported $set payload")
	}

	f.docs[id] = set
	return &mongodriver.UpdateResult{UpsertedCount: 1}, nil
}

func (f *fakeCollection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := filter.(bson.M)
	if !ok {
		return 0, errors.New("unsupported filter")
	}
	id, ok := m["_id"].(string)
	if !ok {
		return 0, errors.New("missing id in filter")
	}
	if _, found := f.docs[id]; !found {
		return 0, nil
	}
	delete(f.docs, id)
	return 1, nil
}

func (f *fakeCollection) Indexes() indexView {
	return fakeIndexView{f: f}
}

type fakeIndexView struct {
	f *fakeCollection
}

func (v fakeIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	v.f.mu.Lock()
	defer v.f.mu.Unlock()
	v.f.indexCreated = true
	return "patient_id_1_generated_at_-1", nil
}

type fakeSingleResult struct {
	doc *reportDocument
	err error
}

func (r fakeSingleResult) Decode(val any) error {
	if r.err != nil {
		return r.err
	}
	target, ok := val.(*reportDocument)
	if !ok {
		return errors.New("unsupported decode target")
	}
	*target = *r.doc
	return nil
}

func mustNewTestClient(t *testing.T) (*client, *fakeCollection) {
	t.Helper()
	fc := newFakeCollection()
	require.NoError(t, ensureIndexes(context.Background(), fc))
	c, err := newClientWithCollection(fc, time.Second)
	require.NoError(t, err)
	return c, fc
}

func TestEnsureIndexes(t *testing.T) {
	fc := newFakeCollection()
	require.NoError(t, ensureIndexes(context.Background(), fc))
	assert.True(t, fc.indexCreated)
}

func TestUpsertAndLoad(t *testing.T) {
	c, _ := mustNewTestClient(t)

	report := dischargereport.DischargeReport{
		ID:               "r1",
		PatientID:        "p1",
		BedIDAtDischarge: "b1",
		GeneratedAt:      time.Now(),
		Sections:         []dischargereport.Section{{Title: "Identification", Body: "..."}},
		RenderedText:     "full text",
	}
	require.NoError(t, c.UpsertReport(context.Background(), report))

	loaded, err := c.LoadReport(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, report.PatientID, loaded.PatientID)
	assert.Equal(t, report.RenderedText, loaded.RenderedText)
	require.Len(t, loaded.Sections, 1)
	assert.Equal(t, "Identification", loaded.Sections[0].Title)
}

func TestUpsertValidation(t *testing.T) {
	c, _ := mustNewTestClient(t)
	err := c.UpsertReport(context.Background(), dischargereport.DischargeReport{})
	assert.Error(t, err)
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	c, _ := mustNewTestClient(t)
	_, err := c.LoadReport(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadLatestForPatientPicksMostRecent(t *testing.T) {
	c, _ := mustNewTestClient(t)

	older := dischargereport.DischargeReport{ID: "r1", PatientID: "p1", GeneratedAt: time.Now().Add(-time.Hour)}
	newer := dischargereport.DischargeReport{ID: "r2", PatientID: "p1", GeneratedAt: time.Now()}
	require.NoError(t, c.UpsertReport(context.Background(), older))
	require.NoError(t, c.UpsertReport(context.Background(), newer))

	latest, err := c.LoadLatestForPatient(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.ID)
}

func TestDeleteReport(t *testing.T) {
	c, _ := mustNewTestClient(t)
	report := dischargereport.DischargeReport{ID: "r1", PatientID: "p1", GeneratedAt: time.Now()}
	require.NoError(t, c.UpsertReport(context.Background(), report))

	require.NoError(t, c.DeleteReport(context.Background(), "r1"))
	_, err := c.LoadReport(context.Background(), "r1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	c, _ := mustNewTestClient(t)
	err := c.DeleteReport(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
