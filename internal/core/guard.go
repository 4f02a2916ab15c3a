package core

import (
	"context"

	"qcatlas/pkg/domain"
)

func checkKind(kind domain.EntityType) error {
	if _, ok := domain.ParseEntityType(string(kind)); !ok {
		return domain.NewInvalidValue(kind, "", "unknown entity type")
	}
	return nil
}

func resolveIn(view domain.TransactionView, kind domain.EntityType, id string) (domain.Record, error) {
	rec, ok := view.Get(kind, id)
	if !ok {
		return nil, domain.NewNotFound(kind, id)
	}
	return rec, nil
}

// Resolve returns the entity of the given kind or a NotFoundError.
func (s *Service) Resolve(ctx context.Context, kind domain.EntityType, id string) (domain.Record, error) {
	var rec domain.Record
	err := s.run(ctx, query("resolve", kind), func(ctx context.Context) (string, error) {
		if err := checkKind(kind); err != nil {
			return id, err
		}
		return id, s.store.View(ctx, func(v domain.TransactionView) error {
			var err error
			rec, err = resolveIn(v, kind, id)
			return err
		})
	})
	return rec, err
}

// Exists reports whether an entity of the given kind exists.
func (s *Service) Exists(ctx context.Context, kind domain.EntityType, id string) (bool, error) {
	var found bool
	err := s.run(ctx, query("exists", kind), func(ctx context.Context) (string, error) {
		if err := checkKind(kind); err != nil {
			return id, err
		}
		return id, s.store.View(ctx, func(v domain.TransactionView) error {
			_, found = v.Get(kind, id)
			return nil
		})
	})
	return found, err
}
