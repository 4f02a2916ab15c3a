package core

import (
	"context"
	"errors"

	"qcatlas/pkg/domain"
)

// cascade collects work that must happen after a delete transaction commits.
type cascade struct {
	tx       domain.Transaction
	blobKeys []string
}

// Delete removes an entity after running its pre-delete routine: owned children
// are deleted, references are detached and shared or reference data refuses
// deletion while still referenced. Everything happens in one transaction.
func (s *Service) Delete(ctx context.Context, kind domain.EntityType, id string) (domain.Result, error) {
	op := mutation(domain.ActionDelete, kind)
	var (
		res      domain.Result
		blobKeys []string
	)
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		if err := checkKind(kind); err != nil {
			return id, err
		}
		var err error
		res, err = s.transact(ctx, op, func(tx domain.Transaction) error {
			c := &cascade{tx: tx}
			if err := c.delete(kind, id); err != nil {
				return err
			}
			blobKeys = c.blobKeys
			return nil
		})
		return id, err
	})
	if err == nil {
		s.removeBlobs(ctx, blobKeys)
	}
	return res, err
}

// removeBlobs deletes attachment content. The catalog rows are already gone,
// so failures are logged and not returned.
func (s *Service) removeBlobs(ctx context.Context, keys []string) {
	if s.blobs == nil {
		return
	}
	for _, key := range keys {
		if _, err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Error("remove attachment blob", "key", key, "error", err)
		}
	}
}

func (c *cascade) delete(kind domain.EntityType, id string) error {
	rec, err := resolveIn(c.tx, kind, id)
	if err != nil {
		return err
	}
	if err := c.preDelete(rec); err != nil {
		return err
	}
	return c.tx.Remove(kind, id)
}

func (c *cascade) preDelete(rec domain.Record) error {
	id := rec.RecordID()
	switch v := rec.(type) {
	case domain.Algorithm:
		return c.deleteAlgorithmChildren(id)
	case domain.Implementation:
		return c.deleteImplementationChildren(id)
	case domain.ComputeResource:
		if err := c.refuseIfLinked(domain.EntityComputeResource, id,
			domain.AssocSoftwarePlatformComputeResource, domain.AssocCloudServiceComputeResource); err != nil {
			return err
		}
		if err := c.deleteProperties(domain.EntityComputeResource, id); err != nil {
			return err
		}
		return c.detachAll(domain.EntityComputeResource, id)
	case domain.Backend:
		if err := c.refuseIfLinked(domain.EntityBackend, id,
			domain.AssocSoftwarePlatformBackend, domain.AssocCloudServiceBackend); err != nil {
			return err
		}
		return c.detachAll(domain.EntityBackend, id)
	case domain.ProblemType:
		if err := c.orphanChildProblemTypes(id); err != nil {
			return err
		}
		return c.detachAll(domain.EntityProblemType, id)
	case domain.LearningMethod:
		return c.refuseIfLinked(domain.EntityLearningMethod, id, domain.AssocAlgorithmLearningMethod)
	case domain.ApplicationArea:
		return c.refuseIfLinked(domain.EntityApplicationArea, id, domain.AssocAlgorithmApplicationArea)
	case domain.AlgorithmRelationType:
		return c.refuseIfReferenced(domain.EntityAlgorithmRelationType, id, domain.EntityAlgorithmRelation, func(r domain.Record) bool {
			return r.(domain.AlgorithmRelation).RelationTypeID == id
		})
	case domain.PatternRelationType:
		return c.refuseIfReferenced(domain.EntityPatternRelationType, id, domain.EntityPatternRelation, func(r domain.Record) bool {
			return r.(domain.PatternRelation).PatternRelationTypeID == id
		})
	case domain.ComputeResourcePropertyType:
		return c.refuseIfReferenced(domain.EntityComputeResourcePropertyType, id, domain.EntityComputeResourceProperty, func(r domain.Record) bool {
			return r.(domain.ComputeResourceProperty).TypeID == id
		})
	case domain.File:
		if v.BlobKey != "" {
			c.blobKeys = append(c.blobKeys, v.BlobKey)
		}
		return nil
	case domain.SoftwarePlatform, domain.CloudService, domain.Publication, domain.Tag:
		return c.detachAll(rec.Entity(), id)
	}
	return nil
}

func (c *cascade) deleteAlgorithmChildren(id string) error {
	for _, impl := range c.tx.List(domain.EntityImplementation) {
		if impl.(domain.Implementation).AlgorithmID != id {
			continue
		}
		if err := c.delete(domain.EntityImplementation, impl.RecordID()); err != nil {
			return err
		}
	}
	if err := c.deleteProperties(domain.EntityAlgorithm, id); err != nil {
		return err
	}
	if err := c.deleteWhere(domain.EntityAlgorithmRelation, func(r domain.Record) bool {
		rel := r.(domain.AlgorithmRelation)
		return rel.SourceAlgorithmID == id || rel.TargetAlgorithmID == id
	}); err != nil {
		return err
	}
	if err := c.deleteWhere(domain.EntityPatternRelation, func(r domain.Record) bool {
		return r.(domain.PatternRelation).AlgorithmID == id
	}); err != nil {
		return err
	}
	return c.detachAll(domain.EntityAlgorithm, id)
}

func (c *cascade) deleteImplementationChildren(id string) error {
	if err := c.deleteProperties(domain.EntityImplementation, id); err != nil {
		return err
	}
	for _, rec := range c.tx.List(domain.EntityFile) {
		if rec.(domain.File).ImplementationID != id {
			continue
		}
		if err := c.delete(domain.EntityFile, rec.RecordID()); err != nil {
			return err
		}
	}
	return c.detachAll(domain.EntityImplementation, id)
}

func (c *cascade) deleteProperties(ownerKind domain.EntityType, ownerID string) error {
	owner := domain.PropertyOwner{Kind: ownerKind, ID: ownerID}
	return c.deleteWhere(domain.EntityComputeResourceProperty, func(r domain.Record) bool {
		return r.(domain.ComputeResourceProperty).Owner == owner
	})
}

func (c *cascade) deleteWhere(kind domain.EntityType, match func(domain.Record) bool) error {
	for _, rec := range c.tx.List(kind) {
		if !match(rec) {
			continue
		}
		if err := c.tx.Remove(kind, rec.RecordID()); err != nil {
			return err
		}
	}
	return nil
}

// detachAll removes every association row touching the entity.
func (c *cascade) detachAll(kind domain.EntityType, id string) error {
	for _, spec := range domain.AssociationsOf(kind) {
		side, _ := spec.SideOf(kind)
		for _, other := range c.tx.LinkedIDs(spec.Name, side, id) {
			left, right := id, other
			if side == domain.SideRight {
				left, right = other, id
			}
			if err := c.tx.Unlink(spec.Name, left, right); err != nil {
				return err
			}
		}
	}
	return nil
}

// refuseIfLinked fails with an InUseError when any of the associations still
// holds a row for the entity.
func (c *cascade) refuseIfLinked(kind domain.EntityType, id string, assocs ...domain.Association) error {
	for _, assoc := range assocs {
		spec, ok := domain.LookupAssociation(assoc)
		if !ok {
			return errors.New("undeclared association " + string(assoc))
		}
		side, _ := spec.SideOf(kind)
		if n := c.tx.CountLinks(assoc, side, id); n > 0 {
			return &domain.InUseError{Entity: kind, ID: id, ReferencedBy: string(spec.KindOn(side.Opposite())), Count: n}
		}
	}
	return nil
}

func (c *cascade) refuseIfReferenced(kind domain.EntityType, id string, by domain.EntityType, match func(domain.Record) bool) error {
	count := 0
	for _, rec := range c.tx.List(by) {
		if match(rec) {
			count++
		}
	}
	if count > 0 {
		return &domain.InUseError{Entity: kind, ID: id, ReferencedBy: string(by), Count: count}
	}
	return nil
}

func (c *cascade) orphanChildProblemTypes(id string) error {
	for _, rec := range c.tx.List(domain.EntityProblemType) {
		child := rec.(domain.ProblemType)
		if child.ParentProblemTypeID == nil || *child.ParentProblemTypeID != id {
			continue
		}
		child.ParentProblemTypeID = nil
		if _, err := c.tx.Replace(child); err != nil {
			return err
		}
	}
	return nil
}
