package report

import (
	"context"
	"sort"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tbd54566975/did-resolution-conformance/pkg/storage"
)

const namespace = "reports"

// Store persists reports in a storage provider keyed by run id.
type Store struct {
	db storage.ServiceStorage
}

func NewStore(db storage.ServiceStorage) (*Store, error) {
	if db == nil {
		return nil, errors.New("storage is required")
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, r *Report) error {
	b, err := json.Marshal(r)
	if err != nil {
		return errors.Wrapf(err, "marshalling report<%s>", r.ID)
	}
	if err = s.db.Write(ctx, namespace, r.ID, b); err != nil {
		return errors.Wrapf(err, "storing report<%s>", r.ID)
	}
	logrus.WithField("id", r.ID).Debug("stored report")
	return nil
}

// Get returns the report with the given run id.
func (s *Store) Get(ctx context.Context, id string) (*Report, error) {
	b, err := s.db.Read(ctx, namespace, id)
	if err != nil {
		return nil, errors.Wrapf(err, "reading report<%s>", id)
	}
	if len(b) == 0 {
		return nil, errors.Errorf("report<%s> not found", id)
	}
	var r Report
	if err = json.Unmarshal(b, &r); err != nil {
		return nil, errors.Wrapf(err, "unmarshalling report<%s>", id)
	}
	return &r, nil
}

// List returns every stored report, oldest first.
func (s *Store) List(ctx context.Context) ([]Report, error) {
	all, err := s.db.ReadAll(ctx, namespace)
	if err != nil {
		return nil, errors.Wrap(err, "reading reports")
	}
	reports := make([]Report, 0, len(all))
	for id, b := range all {
		var r Report
		if err = json.Unmarshal(b, &r); err != nil {
			logrus.WithError(err).WithField("id", id).Warn("skipping unreadable report")
			continue
		}
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].StartedAt.Before(reports[j].StartedAt)
	})
	return reports, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return errors.Wrapf(s.db.Delete(ctx, namespace, id), "deleting report<%s>", id)
}
