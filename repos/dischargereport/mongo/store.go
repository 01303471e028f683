// Package mongo adapts the MongoDB-backed client into a
// dischargereport.Repository.
package mongo

import (
	"context"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/careflow-systems/hospital-core/domain/dischargereport"
	clientsmongo "github.com/careflow-systems/hospital-core/repos/dischargereport/mongo/clients/mongo"
)

// Store is a dischargereport.Repository backed by MongoDB.
type Store struct {
	client clientsmongo.Client
}

var _ dischargereport.Repository = (*Store)(nil)

// Options configures a Store connected to a live mongo.Client.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// New builds a Store from connection options, validating and connecting to
// the target collection.
func New(ctx context.Context, opts Options) (*Store, error) {
	client, err := clientsmongo.New(ctx, clientsmongo.Options{
		Client:     opts.Client,
		Database:   opts.Database,
		Collection: opts.Collection,
		Timeout:    opts.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

// NewFromClient builds a Store around an already-constructed Client,
// primarily for tests that substitute a fake collection.
func NewFromClient(client clientsmongo.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Create(ctx context.Context, r dischargereport.DischargeReport) (dischargereport.DischargeReport, error) {
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now().UTC()
	}
	if err := s.client.UpsertReport(ctx, r); err != nil {
		return dischargereport.DischargeReport{}, err
	}
	return r, nil
}

func (s *Store) Get(ctx context.Context, id string) (dischargereport.DischargeReport, error) {
	return s.client.LoadReport(ctx, id)
}

func (s *Store) GetLatestForPatient(ctx context.Context, patientID string) (dischargereport.DischargeReport, error) {
	return s.client.LoadLatestForPatient(ctx, patientID)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.client.DeleteReport(ctx, id)
}
