// Package mongo hosts the MongoDB client backing the discharge report
// store. DischargeReport is the one entity durable storage must survive a
// restart for (spec.md §9 Open Question 3) — its composed, variable-shape
// sections fit a document store better than a relational table.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/careflow-systems/hospital-core/domain"
	"github.com/careflow-systems/hospital-core/domain/dischargereport"
)

const (
	defaultCollection = "discharge_reports"
	defaultOpTimeout   = 5 * time.Second
)

// Client exposes Mongo-backed operations for discharge reports.
type Client interface {
	UpsertReport(ctx context.Context, report dischargereport.DischargeReport) error
	LoadReport(ctx context.Context, id string) (dischargereport.DischargeReport, error)
	LoadLatestForPatient(ctx context.Context, patientID string) (dischargereport.DischargeReport, error)
	DeleteReport(ctx context.Context, id string) error
}

// Options configures the Mongo discharge report client.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

type client struct {
	coll    collection
	timeout time.Duration
}

// New returns a Client backed by MongoDB.
func New(ctx context.Context, opts Options) (Client, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	collectionName := opts.Collection
	if collectionName == "" {
		collectionName = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}

	mcoll := opts.Client.Database(opts.Database).Collection(collectionName)
	wrapper := mongoCollection{coll: mcoll}

	indexCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := ensureIndexes(indexCtx, wrapper); err != nil {
		return nil, err
	}

	return newClientWithCollection(wrapper, timeout)
}

func newClientWithCollection(coll collection, timeout time.Duration) (*client, error) {
	if coll == nil {
		return nil, errors.New("collection is required")
	}
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &client{coll: coll, timeout: timeout}, nil
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *client) UpsertReport(ctx context.Context, report dischargereport.DischargeReport) error {
	if report.ID == "" {
		return errors.New("report id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	doc := fromReport(report)
	filter := bson.M{"_id": report.ID}
	update := bson.M{"$set": doc}
	_, err := c.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (c *client) LoadReport(ctx context.Context, id string) (dischargereport.DischargeReport, error) {
	if id == "" {
		return dischargereport.DischargeReport{}, errors.New("report id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var doc reportDocument
	if err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return dischargereport.DischargeReport{}, domain.ErrNotFound
		}
		return dischargereport.DischargeReport{}, err
	}
	return doc.toReport(), nil
}

func (c *client) LoadLatestForPatient(ctx context.Context, patientID string) (dischargereport.DischargeReport, error) {
	if patientID == "" {
		return dischargereport.DischargeReport{}, errors.New("patient id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "generated_at", Value: -1}})
	var doc reportDocument
	if err := c.coll.FindOne(ctx, bson.M{"patient_id": patientID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return dischargereport.DischargeReport{}, domain.ErrNotFound
		}
		return dischargereport.DischargeReport{}, err
	}
	return doc.toReport(), nil
}

func (c *client) DeleteReport(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("report id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func ensureIndexes(ctx context.Context, coll collection) error {
	index := mongodriver.IndexModel{
		Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "generated_at", Value: -1}},
	}
	_, err := coll.Indexes().CreateOne(ctx, index)
	return err
}

type sectionDocument struct {
	Title string `bson:"title"`
	Body  string `bson:"body"`
}

type reportDocument struct {
	ID               string            `bson:"_id"`
	PatientID        string            `bson:"patient_id"`
	BedIDAtDischarge string            `bson:"bed_id_at_discharge"`
	GeneratedAt      time.Time         `bson:"generated_at"`
	Sections         []sectionDocument `bson:"sections"`
	RenderedText     string            `bson:"rendered_text"`
}

func fromReport(r dischargereport.DischargeReport) reportDocument {
	sections := make([]sectionDocument, len(r.Sections))
	for i, s := range r.Sections {
		sections[i] = sectionDocument{Title: s.Title, Body: s.Body}
	}
	return reportDocument{
		ID:               r.ID,
		PatientID:        r.PatientID,
		BedIDAtDischarge: r.BedIDAtDischarge,
		GeneratedAt:      r.GeneratedAt,
		Sections:         sections,
		RenderedText:     r.RenderedText,
	}
}

func (doc reportDocument) toReport() dischargereport.DischargeReport {
	sections := make([]dischargereport.Section, len(doc.Sections))
	for i, s := range doc.Sections {
		sections[i] = dischargereport.Section{Title: s.Title, Body: s.Body}
	}
	return dischargereport.DischargeReport{
		ID:               doc.ID,
		PatientID:        doc.PatientID,
		BedIDAtDischarge: doc.BedIDAtDischarge,
		GeneratedAt:      doc.GeneratedAt,
		Sections:         sections,
		RenderedText:     doc.RenderedText,
	}
}

// collection narrows *mongodriver.Collection to the operations this client
// depends on, so tests can substitute a fake without a live MongoDB server.
type collection interface {
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult
	UpdateOne(ctx context.Context, filter, update any, opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any) (int64, error)
	Indexes() indexView
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error)
}

type singleResult interface {
	Decode(val any) error
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult {
	return mongoSingleResult{res: c.coll.FindOne(ctx, filter, opts...)}
}

func (c mongoCollection) UpdateOne(ctx context.Context, filter, update any, opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error) {
	return c.coll.UpdateOne(ctx, filter, update, opts...)
}

func (c mongoCollection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c mongoCollection) Indexes() indexView {
	return mongoIndexView{view: c.coll.Indexes()}
}

type mongoSingleResult struct {
	res *mongodriver.SingleResult
}

func (r mongoSingleResult) Decode(val any) error {
	return r.res.Decode(val)
}

type mongoIndexView struct {
	view mongodriver.IndexView
}

func (v mongoIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	return v.view.CreateOne(ctx, model, opts...)
}
