package core

import (
	"context"
	"fmt"

	"qcatlas/pkg/domain"
)

// checkReferences resolves every foreign key carried by rec. Property values
// are checked against the data type of their property type.
func checkReferences(view domain.TransactionView, rec domain.Record) error {
	switch v := rec.(type) {
	case domain.Implementation:
		_, err := resolveIn(view, domain.EntityAlgorithm, v.AlgorithmID)
		return err
	case domain.ComputeResourceProperty:
		raw, err := resolveIn(view, domain.EntityComputeResourcePropertyType, v.TypeID)
		if err != nil {
			return err
		}
		if err := domain.ValidatePropertyValue(raw.(domain.ComputeResourcePropertyType).DataType, v.Value); err != nil {
			return err
		}
		_, err = resolveIn(view, v.Owner.Kind, v.Owner.ID)
		return err
	case domain.ProblemType:
		if v.ParentProblemTypeID == nil {
			return nil
		}
		return checkProblemTypeAncestry(view, v)
	case domain.AlgorithmRelation:
		for _, id := range []string{v.SourceAlgorithmID, v.TargetAlgorithmID} {
			if _, err := resolveIn(view, domain.EntityAlgorithm, id); err != nil {
				return err
			}
		}
		_, err := resolveIn(view, domain.EntityAlgorithmRelationType, v.RelationTypeID)
		return err
	case domain.PatternRelation:
		if _, err := resolveIn(view, domain.EntityAlgorithm, v.AlgorithmID); err != nil {
			return err
		}
		_, err := resolveIn(view, domain.EntityPatternRelationType, v.PatternRelationTypeID)
		return err
	case domain.File:
		_, err := resolveIn(view, domain.EntityImplementation, v.ImplementationID)
		return err
	}
	return nil
}

// checkProblemTypeAncestry resolves the parent chain of pt and rejects a chain
// that leads back to pt itself.
func checkProblemTypeAncestry(view domain.TransactionView, pt domain.ProblemType) error {
	seen := map[string]bool{}
	if pt.ID != "" {
		seen[pt.ID] = true
	}
	for parent := pt.ParentProblemTypeID; parent != nil; {
		if seen[*parent] {
			return domain.NewInvalidValue(domain.EntityProblemType, "parent_problem_type_id", fmt.Sprintf("parent chain through %s forms a cycle", *parent))
		}
		seen[*parent] = true
		raw, err := resolveIn(view, domain.EntityProblemType, *parent)
		if err != nil {
			return err
		}
		parent = raw.(domain.ProblemType).ParentProblemTypeID
	}
	return nil
}

// restoreIdentity copies the fields an update must never change from current onto next.
func restoreIdentity(current, next domain.Record) domain.Record {
	next = domain.WithBase(next, domain.BaseOf(current))
	switch c := current.(type) {
	case domain.Implementation:
		n := next.(domain.Implementation)
		n.AlgorithmID = c.AlgorithmID
		return n
	case domain.ComputeResourceProperty:
		n := next.(domain.ComputeResourceProperty)
		n.Owner = c.Owner
		return n
	case domain.File:
		n := next.(domain.File)
		n.ImplementationID = c.ImplementationID
		n.BlobKey = c.BlobKey
		return n
	}
	return next
}

// CreateRecord validates and persists a new entity.
func (s *Service) CreateRecord(ctx context.Context, rec domain.Record) (domain.Record, domain.Result, error) {
	if rec == nil {
		return nil, domain.Result{}, domain.NewInvalidValue("", "", "nil record")
	}
	op := mutation(domain.ActionCreate, rec.Entity())
	var (
		created domain.Record
		res     domain.Result
	)
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		if err := domain.Validate(rec); err != nil {
			return rec.RecordID(), err
		}
		var err error
		res, err = s.transact(ctx, op, func(tx domain.Transaction) error {
			if err := checkReferences(tx, rec); err != nil {
				return err
			}
			var err error
			created, err = tx.Insert(rec)
			return err
		})
		if err != nil {
			return rec.RecordID(), err
		}
		return created.RecordID(), nil
	})
	return created, res, err
}

// UpdateRecord applies mutator to a fresh copy of the persisted entity.
// Identity fields are restored before the result is validated and saved.
func (s *Service) UpdateRecord(ctx context.Context, kind domain.EntityType, id string, mutator func(domain.Record) (domain.Record, error)) (domain.Record, domain.Result, error) {
	op := mutation(domain.ActionUpdate, kind)
	var (
		updated domain.Record
		res     domain.Result
	)
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		if err := checkKind(kind); err != nil {
			return id, err
		}
		var err error
		res, err = s.transact(ctx, op, func(tx domain.Transaction) error {
			current, err := resolveIn(tx, kind, id)
			if err != nil {
				return err
			}
			next, err := mutator(domain.CloneRecord(current))
			if err != nil {
				return err
			}
			if next == nil || next.Entity() != kind {
				return domain.NewInvalidValue(kind, "", "mutator returned a different entity type")
			}
			next = restoreIdentity(current, next)
			if err := domain.Validate(next); err != nil {
				return err
			}
			if err := checkReferences(tx, next); err != nil {
				return err
			}
			updated, err = tx.Replace(next)
			return err
		})
		return id, err
	})
	return updated, res, err
}

// GetRecord returns one entity.
func (s *Service) GetRecord(ctx context.Context, kind domain.EntityType, id string) (domain.Record, error) {
	var rec domain.Record
	err := s.run(ctx, query("get", kind), func(ctx context.Context) (string, error) {
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

// ListRecords returns one page of entities of a kind sorted by ID.
func (s *Service) ListRecords(ctx context.Context, kind domain.EntityType, req domain.PageRequest) (domain.Page[domain.Record], error) {
	return s.listWhere(ctx, query("list", kind), kind, req, nil)
}

func (s *Service) listWhere(ctx context.Context, op operation, kind domain.EntityType, req domain.PageRequest, keep func(domain.Record) bool) (domain.Page[domain.Record], error) {
	var page domain.Page[domain.Record]
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		if err := checkKind(kind); err != nil {
			return "", err
		}
		return "", s.store.View(ctx, func(v domain.TransactionView) error {
			all := v.List(kind)
			if keep != nil {
				filtered := all[:0]
				for _, r := range all {
					if keep(r) {
						filtered = append(filtered, r)
					}
				}
				all = filtered
			}
			page = domain.Paginate(all, req)
			return nil
		})
	})
	return page, err
}

// ImplementationsOf lists the implementations of an algorithm.
func (s *Service) ImplementationsOf(ctx context.Context, algorithmID string, req domain.PageRequest) (domain.Page[domain.Implementation], error) {
	if _, err := s.Resolve(ctx, domain.EntityAlgorithm, algorithmID); err != nil {
		return domain.Page[domain.Implementation]{}, err
	}
	page, err := s.listWhere(ctx, query("list_owned", domain.EntityImplementation), domain.EntityImplementation, req, func(r domain.Record) bool {
		return r.(domain.Implementation).AlgorithmID == algorithmID
	})
	if err != nil {
		return domain.Page[domain.Implementation]{}, err
	}
	return convertPage[domain.Implementation](page)
}

// PropertiesOf lists the compute resource properties owned by an entity.
func (s *Service) PropertiesOf(ctx context.Context, ownerKind domain.EntityType, ownerID string, req domain.PageRequest) (domain.Page[domain.ComputeResourceProperty], error) {
	if _, err := s.Resolve(ctx, ownerKind, ownerID); err != nil {
		return domain.Page[domain.ComputeResourceProperty]{}, err
	}
	owner := domain.PropertyOwner{Kind: ownerKind, ID: ownerID}
	page, err := s.listWhere(ctx, query("list_owned", domain.EntityComputeResourceProperty), domain.EntityComputeResourceProperty, req, func(r domain.Record) bool {
		return r.(domain.ComputeResourceProperty).Owner == owner
	})
	if err != nil {
		return domain.Page[domain.ComputeResourceProperty]{}, err
	}
	return convertPage[domain.ComputeResourceProperty](page)
}

// FilesOf lists the files attached to an implementation.
func (s *Service) FilesOf(ctx context.Context, implementationID string, req domain.PageRequest) (domain.Page[domain.File], error) {
	if _, err := s.Resolve(ctx, domain.EntityImplementation, implementationID); err != nil {
		return domain.Page[domain.File]{}, err
	}
	page, err := s.listWhere(ctx, query("list_owned", domain.EntityFile), domain.EntityFile, req, func(r domain.Record) bool {
		return r.(domain.File).ImplementationID == implementationID
	})
	if err != nil {
		return domain.Page[domain.File]{}, err
	}
	return convertPage[domain.File](page)
}

func kindOf[T domain.Record]() domain.EntityType {
	var zero T
	return zero.Entity()
}

func convertPage[T domain.Record](page domain.Page[domain.Record]) (domain.Page[T], error) {
	out := domain.Page[T]{Items: make([]T, 0, len(page.Items)), Page: page.Page, Size: page.Size, Total: page.Total}
	for _, r := range page.Items {
		v, ok := r.(T)
		if !ok {
			return domain.Page[T]{}, fmt.Errorf("unexpected record type %T", r)
		}
		out.Items = append(out.Items, v)
	}
	return out, nil
}

// Create persists a new entity of type T.
func Create[T domain.Record](ctx context.Context, s *Service, rec T) (T, domain.Result, error) {
	out, res, err := s.CreateRecord(ctx, rec)
	if err != nil {
		var zero T
		return zero, res, err
	}
	return out.(T), res, nil
}

// Update mutates the persisted entity of type T identified by id.
func Update[T domain.Record](ctx context.Context, s *Service, id string, mutator func(*T) error) (T, domain.Result, error) {
	out, res, err := s.UpdateRecord(ctx, kindOf[T](), id, func(r domain.Record) (domain.Record, error) {
		v, ok := r.(T)
		if !ok {
			return nil, fmt.Errorf("unexpected record type %T", r)
		}
		if err := mutator(&v); err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, res, err
	}
	return out.(T), res, nil
}

// Get returns the entity of type T identified by id.
func Get[T domain.Record](ctx context.Context, s *Service, id string) (T, error) {
	rec, err := s.GetRecord(ctx, kindOf[T](), id)
	if err != nil {
		var zero T
		return zero, err
	}
	return rec.(T), nil
}

// List returns one page of entities of type T.
func List[T domain.Record](ctx context.Context, s *Service, req domain.PageRequest) (domain.Page[T], error) {
	page, err := s.ListRecords(ctx, kindOf[T](), req)
	if err != nil {
		return domain.Page[T]{}, err
	}
	return convertPage[T](page)
}

// CreateAlgorithm persists a new algorithm.
func (s *Service) CreateAlgorithm(ctx context.Context, algorithm domain.Algorithm) (domain.Algorithm, domain.Result, error) {
	return Create(ctx, s, algorithm)
}

// UpdateAlgorithm mutates an algorithm using the provided mutator.
func (s *Service) UpdateAlgorithm(ctx context.Context, id string, mutator func(*domain.Algorithm) error) (domain.Algorithm, domain.Result, error) {
	return Update(ctx, s, id, mutator)
}

// CreateImplementation persists a new implementation of an existing algorithm.
func (s *Service) CreateImplementation(ctx context.Context, impl domain.Implementation) (domain.Implementation, domain.Result, error) {
	return Create(ctx, s, impl)
}

// UpdateImplementation mutates an implementation. AlgorithmID cannot change.
func (s *Service) UpdateImplementation(ctx context.Context, id string, mutator func(*domain.Implementation) error) (domain.Implementation, domain.Result, error) {
	return Update(ctx, s, id, mutator)
}

// AddProperty persists a compute resource property for its owner.
func (s *Service) AddProperty(ctx context.Context, prop domain.ComputeResourceProperty) (domain.ComputeResourceProperty, domain.Result, error) {
	return Create(ctx, s, prop)
}
