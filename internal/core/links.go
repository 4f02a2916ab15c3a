package core

import (
	"context"
	"fmt"

	"qcatlas/pkg/domain"
)

func lookupAssociation(assoc domain.Association) (domain.AssociationSpec, error) {
	spec, ok := domain.LookupAssociation(assoc)
	if !ok {
		return domain.AssociationSpec{}, domain.NewInvalidValue("", "association", fmt.Sprintf("unknown association %q", assoc))
	}
	return spec, nil
}

func linkOperation(action domain.Action, spec domain.AssociationSpec) operation {
	return operation{name: string(action) + "_" + string(spec.Name), entity: spec.Left, action: action}
}

func linkID(leftID, rightID string) string {
	return leftID + ":" + rightID
}

// Link inserts the (leftID, rightID) row of assoc after resolving both sides.
// An existing row fails with domain.ErrAlreadyLinked.
func (s *Service) Link(ctx context.Context, assoc domain.Association, leftID, rightID string) (domain.Result, error) {
	return s.mutateLink(ctx, domain.ActionLink, assoc, leftID, rightID)
}

// Unlink removes the (leftID, rightID) row of assoc after resolving both sides.
// A missing row fails with domain.ErrNotLinked.
func (s *Service) Unlink(ctx context.Context, assoc domain.Association, leftID, rightID string) (domain.Result, error) {
	return s.mutateLink(ctx, domain.ActionUnlink, assoc, leftID, rightID)
}

func (s *Service) mutateLink(ctx context.Context, action domain.Action, assoc domain.Association, leftID, rightID string) (domain.Result, error) {
	spec, err := lookupAssociation(assoc)
	if err != nil {
		return domain.Result{}, err
	}
	op := linkOperation(action, spec)
	var res domain.Result
	err = s.run(ctx, op, func(ctx context.Context) (string, error) {
		var err error
		res, err = s.transact(ctx, op, func(tx domain.Transaction) error {
			if _, err := resolveIn(tx, spec.Left, leftID); err != nil {
				return err
			}
			if _, err := resolveIn(tx, spec.Right, rightID); err != nil {
				return err
			}
			if action == domain.ActionUnlink {
				return tx.Unlink(assoc, leftID, rightID)
			}
			return tx.Link(assoc, leftID, rightID)
		})
		return linkID(leftID, rightID), err
	})
	return res, err
}

// Linked returns the IDs linked to id, which sits on the given side of assoc.
func (s *Service) Linked(ctx context.Context, assoc domain.Association, side domain.Side, id string, req domain.PageRequest) (domain.Page[string], error) {
	spec, err := lookupAssociation(assoc)
	if err != nil {
		return domain.Page[string]{}, err
	}
	var page domain.Page[string]
	err = s.run(ctx, operation{name: "linked_" + string(assoc), entity: spec.KindOn(side)}, func(ctx context.Context) (string, error) {
		return id, s.store.View(ctx, func(v domain.TransactionView) error {
			if _, err := resolveIn(v, spec.KindOn(side), id); err != nil {
				return err
			}
			page = domain.Paginate(v.LinkedIDs(assoc, side, id), req)
			return nil
		})
	})
	return page, err
}

// IsLinked reports whether the (leftID, rightID) row of assoc exists.
func (s *Service) IsLinked(ctx context.Context, assoc domain.Association, leftID, rightID string) (bool, error) {
	if _, err := lookupAssociation(assoc); err != nil {
		return false, err
	}
	var linked bool
	err := s.run(ctx, operation{name: "is_linked_" + string(assoc)}, func(ctx context.Context) (string, error) {
		return linkID(leftID, rightID), s.store.View(ctx, func(v domain.TransactionView) error {
			linked = v.IsLinked(assoc, leftID, rightID)
			return nil
		})
	})
	return linked, err
}

// associationBetween finds the single association joining two kinds and the
// side the from kind occupies.
func associationBetween(from, to domain.EntityType) (domain.AssociationSpec, domain.Side, error) {
	for _, spec := range domain.AssociationsOf(from) {
		side, _ := spec.SideOf(from)
		if spec.KindOn(side.Opposite()) == to {
			return spec, side, nil
		}
	}
	return domain.AssociationSpec{}, 0, domain.NewInvalidValue(from, "", fmt.Sprintf("no association with %s", to))
}

// FindLinked resolves the entities of type T linked to the given entity.
func FindLinked[T domain.Record](ctx context.Context, s *Service, kind domain.EntityType, id string, req domain.PageRequest) (domain.Page[T], error) {
	target := kindOf[T]()
	spec, side, err := associationBetween(kind, target)
	if err != nil {
		return domain.Page[T]{}, err
	}
	var page domain.Page[domain.Record]
	err = s.run(ctx, query("find_linked", target), func(ctx context.Context) (string, error) {
		return id, s.store.View(ctx, func(v domain.TransactionView) error {
			if _, err := resolveIn(v, kind, id); err != nil {
				return err
			}
			ids := v.LinkedIDs(spec.Name, side, id)
			records := make([]domain.Record, 0, len(ids))
			for _, linked := range ids {
				rec, err := resolveIn(v, target, linked)
				if err != nil {
					return err
				}
				records = append(records, rec)
			}
			page = domain.Paginate(records, req)
			return nil
		})
	})
	if err != nil {
		return domain.Page[T]{}, err
	}
	return convertPage[T](page)
}

// FindLinkedPublications returns the publications of an algorithm or implementation.
func (s *Service) FindLinkedPublications(ctx context.Context, kind domain.EntityType, id string, req domain.PageRequest) (domain.Page[domain.Publication], error) {
	return FindLinked[domain.Publication](ctx, s, kind, id, req)
}

// FindLinkedAlgorithms returns the algorithms referencing a publication, problem
// type, application area, learning method or tag.
func (s *Service) FindLinkedAlgorithms(ctx context.Context, kind domain.EntityType, id string, req domain.PageRequest) (domain.Page[domain.Algorithm], error) {
	return FindLinked[domain.Algorithm](ctx, s, kind, id, req)
}

// FindLinkedImplementations returns the implementations referencing a publication,
// software platform or tag.
func (s *Service) FindLinkedImplementations(ctx context.Context, kind domain.EntityType, id string, req domain.PageRequest) (domain.Page[domain.Implementation], error) {
	return FindLinked[domain.Implementation](ctx, s, kind, id, req)
}

func (s *Service) FindLinkedProblemTypes(ctx context.Context, algorithmID string, req domain.PageRequest) (domain.Page[domain.ProblemType], error) {
	return FindLinked[domain.ProblemType](ctx, s, domain.EntityAlgorithm, algorithmID, req)
}

func (s *Service) FindLinkedApplicationAreas(ctx context.Context, algorithmID string, req domain.PageRequest) (domain.Page[domain.ApplicationArea], error) {
	return FindLinked[domain.ApplicationArea](ctx, s, domain.EntityAlgorithm, algorithmID, req)
}

func (s *Service) FindLinkedLearningMethods(ctx context.Context, algorithmID string, req domain.PageRequest) (domain.Page[domain.LearningMethod], error) {
	return FindLinked[domain.LearningMethod](ctx, s, domain.EntityAlgorithm, algorithmID, req)
}

func (s *Service) FindLinkedTags(ctx context.Context, kind domain.EntityType, id string, req domain.PageRequest) (domain.Page[domain.Tag], error) {
	return FindLinked[domain.Tag](ctx, s, kind, id, req)
}

func (s *Service) FindLinkedSoftwarePlatforms(ctx context.Context, kind domain.EntityType, id string, req domain.PageRequest) (domain.Page[domain.SoftwarePlatform], error) {
	return FindLinked[domain.SoftwarePlatform](ctx, s, kind, id, req)
}

func (s *Service) FindLinkedCloudServices(ctx context.Context, kind domain.EntityType, id string, req domain.PageRequest) (domain.Page[domain.CloudService], error) {
	return FindLinked[domain.CloudService](ctx, s, kind, id, req)
}

func (s *Service) FindLinkedComputeResources(ctx context.Context, kind domain.EntityType, id string, req domain.PageRequest) (domain.Page[domain.ComputeResource], error) {
	return FindLinked[domain.ComputeResource](ctx, s, kind, id, req)
}

func (s *Service) FindLinkedBackends(ctx context.Context, kind domain.EntityType, id string, req domain.PageRequest) (domain.Page[domain.Backend], error) {
	return FindLinked[domain.Backend](ctx, s, kind, id, req)
}
