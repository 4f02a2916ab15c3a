package core

import (
	"context"
	"fmt"

	"qcatlas/pkg/domain"
)

const (
	referentialIntegrityRuleName = "referential_integrity"
	propertyOwnershipRuleName    = "property_ownership"
)

// ReferentialIntegrityRule blocks transactions that leave association rows or
// foreign keys pointing at missing entities.
func ReferentialIntegrityRule() domain.Rule {
	return referentialIntegrityRule{}
}

type referentialIntegrityRule struct{}

func (referentialIntegrityRule) Name() string { return referentialIntegrityRuleName }

func (referentialIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		switch change.Action {
		case domain.ActionLink:
			link, ok := change.After.(domain.Link)
			if !ok {
				continue
			}
			spec, ok := domain.LookupAssociation(link.Association)
			if !ok {
				continue
			}
			if _, found := view.Get(spec.Left, link.LeftID); !found {
				res.Violations = append(res.Violations, integrityViolation(spec.Left, link.LeftID, fmt.Sprintf("%s row references missing %s %s", spec.Name, spec.Left, link.LeftID)))
			}
			if _, found := view.Get(spec.Right, link.RightID); !found {
				res.Violations = append(res.Violations, integrityViolation(spec.Right, link.RightID, fmt.Sprintf("%s row references missing %s %s", spec.Name, spec.Right, link.RightID)))
			}
		case domain.ActionCreate, domain.ActionUpdate:
			rec, ok := change.After.(domain.Record)
			if !ok {
				continue
			}
			if _, live := view.Get(rec.Entity(), rec.RecordID()); !live {
				continue
			}
			for _, ref := range foreignKeys(rec) {
				if _, found := view.Get(ref.kind, ref.id); !found {
					res.Violations = append(res.Violations, integrityViolation(rec.Entity(), rec.RecordID(), fmt.Sprintf("%s %s references missing %s %s", rec.Entity(), rec.RecordID(), ref.kind, ref.id)))
				}
			}
		case domain.ActionDelete:
			rec, ok := change.Before.(domain.Record)
			if !ok {
				continue
			}
			if _, found := view.Get(rec.Entity(), rec.RecordID()); found {
				continue
			}
			for _, spec := range domain.AssociationsOf(rec.Entity()) {
				side, _ := spec.SideOf(rec.Entity())
				if n := view.CountLinks(spec.Name, side, rec.RecordID()); n > 0 {
					res.Violations = append(res.Violations, integrityViolation(rec.Entity(), rec.RecordID(), fmt.Sprintf("deleted %s %s still has %d %s rows", rec.Entity(), rec.RecordID(), n, spec.Name)))
				}
			}
		}
	}
	return res, nil
}

type reference struct {
	kind domain.EntityType
	id   string
}

func foreignKeys(rec domain.Record) []reference {
	switch v := rec.(type) {
	case domain.Implementation:
		return []reference{{domain.EntityAlgorithm, v.AlgorithmID}}
	case domain.ComputeResourceProperty:
		return []reference{{domain.EntityComputeResourcePropertyType, v.TypeID}}
	case domain.ProblemType:
		if v.ParentProblemTypeID != nil {
			return []reference{{domain.EntityProblemType, *v.ParentProblemTypeID}}
		}
	case domain.AlgorithmRelation:
		return []reference{
			{domain.EntityAlgorithm, v.SourceAlgorithmID},
			{domain.EntityAlgorithm, v.TargetAlgorithmID},
			{domain.EntityAlgorithmRelationType, v.RelationTypeID},
		}
	case domain.PatternRelation:
		return []reference{
			{domain.EntityAlgorithm, v.AlgorithmID},
			{domain.EntityPatternRelationType, v.PatternRelationTypeID},
		}
	case domain.File:
		return []reference{{domain.EntityImplementation, v.ImplementationID}}
	}
	return nil
}

func integrityViolation(kind domain.EntityType, id, message string) domain.Violation {
	return domain.Violation{
		Rule:     referentialIntegrityRuleName,
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   kind,
		EntityID: id,
	}
}

// PropertyOwnershipRule blocks compute resource properties without exactly one
// existing owner of a permitted kind.
func PropertyOwnershipRule() domain.Rule {
	return propertyOwnershipRule{}
}

type propertyOwnershipRule struct{}

func (propertyOwnershipRule) Name() string { return propertyOwnershipRuleName }

func (propertyOwnershipRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityComputeResourceProperty || change.After == nil {
			continue
		}
		prop, ok := change.After.(domain.ComputeResourceProperty)
		if !ok {
			continue
		}
		switch prop.Owner.Kind {
		case domain.EntityAlgorithm, domain.EntityImplementation, domain.EntityComputeResource:
		default:
			res.Violations = append(res.Violations, ownershipViolation(prop.ID, fmt.Sprintf("property %s has invalid owner kind %q", prop.ID, prop.Owner.Kind)))
			continue
		}
		if _, found := view.Get(prop.Owner.Kind, prop.Owner.ID); !found {
			res.Violations = append(res.Violations, ownershipViolation(prop.ID, fmt.Sprintf("property %s owner %s %s does not exist", prop.ID, prop.Owner.Kind, prop.Owner.ID)))
		}
	}
	return res, nil
}

func ownershipViolation(id, message string) domain.Violation {
	return domain.Violation{
		Rule:     propertyOwnershipRuleName,
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityComputeResourceProperty,
		EntityID: id,
	}
}
