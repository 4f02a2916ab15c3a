// Package domain defines the catalog entities, association registry, error
// taxonomy and rule evaluation primitives used by qcatlas.
package domain

import "time"

// EntityType identifies the type of record stored in the catalog.
type EntityType string

// Supported entity type identifiers used in Change records, errors and persistence buckets.
const (
	// EntityAlgorithm identifies an algorithm record.
	EntityAlgorithm EntityType = "algorithm"
	// EntityImplementation identifies an implementation of an algorithm.
	EntityImplementation EntityType = "implementation"
	// EntitySoftwarePlatform identifies a software platform (SDK, framework).
	EntitySoftwarePlatform EntityType = "software_platform"
	// EntityCloudService identifies a cloud service offering compute resources.
	EntityCloudService EntityType = "cloud_service"
	// EntityComputeResource identifies a compute resource (QPU, simulator).
	EntityComputeResource EntityType = "compute_resource"
	// EntityBackend identifies a legacy backend record mirroring compute resources.
	EntityBackend EntityType = "backend"
	// EntityComputeResourceProperty identifies a typed property value.
	EntityComputeResourceProperty EntityType = "compute_resource_property"
	// EntityComputeResourcePropertyType identifies a property type definition.
	EntityComputeResourcePropertyType EntityType = "compute_resource_property_type"
	// EntityPublication identifies a publication.
	EntityPublication EntityType = "publication"
	// EntityProblemType identifies a problem type.
	EntityProblemType EntityType = "problem_type"
	// EntityApplicationArea identifies an application area.
	EntityApplicationArea EntityType = "application_area"
	// EntityLearningMethod identifies a learning method.
	EntityLearningMethod EntityType = "learning_method"
	// EntityTag identifies a free-form tag.
	EntityTag EntityType = "tag"
	// EntityAlgorithmRelation identifies a typed relation between two algorithms.
	EntityAlgorithmRelation EntityType = "algorithm_relation"
	// EntityAlgorithmRelationType identifies an algorithm relation type.
	EntityAlgorithmRelationType EntityType = "algorithm_relation_type"
	// EntityPatternRelation identifies a relation between an algorithm and a pattern.
	EntityPatternRelation EntityType = "pattern_relation"
	// EntityPatternRelationType identifies a pattern relation type.
	EntityPatternRelationType EntityType = "pattern_relation_type"
	// EntityFile identifies a file attached to an implementation.
	EntityFile EntityType = "file"
)

// EntityTypes lists every catalog entity type in a stable order.
func EntityTypes() []EntityType {
	return []EntityType{
		EntityAlgorithm,
		EntityImplementation,
		EntitySoftwarePlatform,
		EntityCloudService,
		EntityComputeResource,
		EntityBackend,
		EntityComputeResourceProperty,
		EntityComputeResourcePropertyType,
		EntityPublication,
		EntityProblemType,
		EntityApplicationArea,
		EntityLearningMethod,
		EntityTag,
		EntityAlgorithmRelation,
		EntityAlgorithmRelationType,
		EntityPatternRelation,
		EntityPatternRelationType,
		EntityFile,
	}
}

// ParseEntityType resolves a textual entity type.
func ParseEntityType(raw string) (EntityType, bool) {
	for _, t := range EntityTypes() {
		if string(t) == raw {
			return t, true
		}
	}
	return "", false
}

// ComputationKind selects the algorithm/implementation variant.
type ComputationKind string

// Supported computation kinds.
const (
	KindClassical ComputationKind = "classical"
	KindQuantum   ComputationKind = "quantum"
	KindHybrid    ComputationKind = "hybrid"
)

// RequiresQuantumDetails reports whether the kind carries a quantum payload.
func (k ComputationKind) RequiresQuantumDetails() bool {
	return k == KindQuantum || k == KindHybrid
}

// QuantumComputationModel enumerates the supported quantum computation models.
type QuantumComputationModel string

// Canonical quantum computation models.
const (
	ModelGateBased        QuantumComputationModel = "gate_based"
	ModelMeasurementBased QuantumComputationModel = "measurement_based"
	ModelQuantumAnnealing QuantumComputationModel = "quantum_annealing"
)

// PropertyDataType is the declared data type of a compute resource property type.
type PropertyDataType string

// Supported property data types.
const (
	DataTypeInteger PropertyDataType = "integer"
	DataTypeFloat   PropertyDataType = "float"
	DataTypeString  PropertyDataType = "string"
)

// Base contains common fields for all catalog records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordID returns the record identifier.
func (b Base) RecordID() string { return b.ID }

// BaseRef exposes the embedded base for stores that assign identity and timestamps.
func (b *Base) BaseRef() *Base { return b }

// Record is implemented by every catalog entity.
type Record interface {
	RecordID() string
	Entity() EntityType
}

// QuantumAlgorithmDetails is the variant payload of quantum and hybrid algorithms.
type QuantumAlgorithmDetails struct {
	ComputationModel QuantumComputationModel `json:"computation_model" validate:"required,oneof=gate_based measurement_based quantum_annealing"`
	SpeedUp          string                  `json:"speed_up,omitempty"`
	NisqReady        bool                    `json:"nisq_ready"`
}

// Algorithm describes an abstract algorithm. Quantum is set iff Kind requires it.
type Algorithm struct {
	Base
	Name        string                   `json:"name" validate:"required"`
	Acronym     string                   `json:"acronym,omitempty"`
	Intent      string                   `json:"intent,omitempty"`
	Problem     string                   `json:"problem,omitempty"`
	Solution    string                   `json:"solution,omitempty"`
	Assumptions string                   `json:"assumptions,omitempty"`
	Kind        ComputationKind          `json:"kind" validate:"required,oneof=classical quantum hybrid"`
	Quantum     *QuantumAlgorithmDetails `json:"quantum,omitempty"`
}

// Entity returns EntityAlgorithm.
func (Algorithm) Entity() EntityType { return EntityAlgorithm }

// Clone returns a deep copy.
func (a Algorithm) Clone() Algorithm {
	cp := a
	if a.Quantum != nil {
		q := *a.Quantum
		cp.Quantum = &q
	}
	return cp
}

// QuantumImplementationDetails is the variant payload of quantum and hybrid implementations.
type QuantumImplementationDetails struct {
	InputFormat  string `json:"input_format,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
}

// Implementation realises exactly one algorithm.
type Implementation struct {
	Base
	Name         string                        `json:"name" validate:"required"`
	AlgorithmID  string                        `json:"algorithm_id" validate:"required"`
	Description  string                        `json:"description,omitempty"`
	Contributors string                        `json:"contributors,omitempty"`
	Assumptions  string                        `json:"assumptions,omitempty"`
	Kind         ComputationKind               `json:"kind" validate:"required,oneof=classical quantum hybrid"`
	Quantum      *QuantumImplementationDetails `json:"quantum,omitempty"`
}

// Entity returns EntityImplementation.
func (Implementation) Entity() EntityType { return EntityImplementation }

// Clone returns a deep copy.
func (i Implementation) Clone() Implementation {
	cp := i
	if i.Quantum != nil {
		q := *i.Quantum
		cp.Quantum = &q
	}
	return cp
}

// SoftwarePlatform is an SDK or framework implementations target.
type SoftwarePlatform struct {
	Base
	Name    string `json:"name" validate:"required"`
	Link    string `json:"link,omitempty" validate:"omitempty,url"`
	Licence string `json:"licence,omitempty"`
	Version string `json:"version,omitempty"`
}

// Entity returns EntitySoftwarePlatform.
func (SoftwarePlatform) Entity() EntityType { return EntitySoftwarePlatform }

// CloudService offers access to compute resources.
type CloudService struct {
	Base
	Name        string `json:"name" validate:"required"`
	Provider    string `json:"provider,omitempty"`
	URL         string `json:"url,omitempty" validate:"omitempty,url"`
	Description string `json:"description,omitempty"`
	CostModel   string `json:"cost_model,omitempty"`
}

// Entity returns EntityCloudService.
func (CloudService) Entity() EntityType { return EntityCloudService }

// ComputeResource is a quantum or classical execution target.
type ComputeResource struct {
	Base
	Name             string                  `json:"name" validate:"required"`
	Vendor           string                  `json:"vendor,omitempty"`
	Technology       string                  `json:"technology,omitempty"`
	ComputationModel QuantumComputationModel `json:"computation_model,omitempty" validate:"omitempty,oneof=gate_based measurement_based quantum_annealing"`
}

// Entity returns EntityComputeResource.
func (ComputeResource) Entity() EntityType { return EntityComputeResource }

// Backend is the legacy twin of ComputeResource kept for older catalog data.
type Backend struct {
	Base
	Name             string                  `json:"name" validate:"required"`
	Vendor           string                  `json:"vendor,omitempty"`
	Technology       string                  `json:"technology,omitempty"`
	ComputationModel QuantumComputationModel `json:"computation_model,omitempty" validate:"omitempty,oneof=gate_based measurement_based quantum_annealing"`
}

// Entity returns EntityBackend.
func (Backend) Entity() EntityType { return EntityBackend }

// PropertyOwner names the single entity owning a compute resource property.
type PropertyOwner struct {
	Kind EntityType `json:"kind" validate:"required,oneof=algorithm implementation compute_resource"`
	ID   string     `json:"id" validate:"required"`
}

// ComputeResourceProperty is a typed value owned by an algorithm, implementation or compute resource.
type ComputeResourceProperty struct {
	Base
	TypeID string        `json:"type_id" validate:"required"`
	Value  string        `json:"value"`
	Owner  PropertyOwner `json:"owner"`
}

// Entity returns EntityComputeResourceProperty.
func (ComputeResourceProperty) Entity() EntityType { return EntityComputeResourceProperty }

// ComputeResourcePropertyType declares the name and data type of a property.
type ComputeResourcePropertyType struct {
	Base
	Name        string           `json:"name" validate:"required"`
	DataType    PropertyDataType `json:"data_type" validate:"required,oneof=integer float string"`
	Description string           `json:"description,omitempty"`
}

// Entity returns EntityComputeResourcePropertyType.
func (ComputeResourcePropertyType) Entity() EntityType { return EntityComputeResourcePropertyType }

// Publication is a referenced paper or article.
type Publication struct {
	Base
	Title   string   `json:"title" validate:"required"`
	DOI     string   `json:"doi,omitempty"`
	URL     string   `json:"url,omitempty" validate:"omitempty,url"`
	Authors []string `json:"authors,omitempty"`
}

// Entity returns EntityPublication.
func (Publication) Entity() EntityType { return EntityPublication }

// Clone returns a deep copy.
func (p Publication) Clone() Publication {
	cp := p
	cp.Authors = append([]string(nil), p.Authors...)
	return cp
}

// ProblemType categorises the problem an algorithm solves. Problem types form a tree.
type ProblemType struct {
	Base
	Name                string  `json:"name" validate:"required"`
	ParentProblemTypeID *string `json:"parent_problem_type_id,omitempty"`
}

// Entity returns EntityProblemType.
func (ProblemType) Entity() EntityType { return EntityProblemType }

// Clone returns a deep copy.
func (p ProblemType) Clone() ProblemType {
	cp := p
	if p.ParentProblemTypeID != nil {
		id := *p.ParentProblemTypeID
		cp.ParentProblemTypeID = &id
	}
	return cp
}

// ApplicationArea is a domain an algorithm is applied in.
type ApplicationArea struct {
	Base
	Name string `json:"name" validate:"required"`
}

// Entity returns EntityApplicationArea.
func (ApplicationArea) Entity() EntityType { return EntityApplicationArea }

// LearningMethod is a machine learning method an algorithm uses.
type LearningMethod struct {
	Base
	Name string `json:"name" validate:"required"`
}

// Entity returns EntityLearningMethod.
func (LearningMethod) Entity() EntityType { return EntityLearningMethod }

// Tag is a free-form label.
type Tag struct {
	Base
	Value    string `json:"value" validate:"required"`
	Category string `json:"category,omitempty"`
}

// Entity returns EntityTag.
func (Tag) Entity() EntityType { return EntityTag }

// AlgorithmRelation links two algorithms with a typed relation.
type AlgorithmRelation struct {
	Base
	SourceAlgorithmID string `json:"source_algorithm_id" validate:"required"`
	TargetAlgorithmID string `json:"target_algorithm_id" validate:"required"`
	RelationTypeID    string `json:"relation_type_id" validate:"required"`
	Description       string `json:"description,omitempty"`
}

// Entity returns EntityAlgorithmRelation.
func (AlgorithmRelation) Entity() EntityType { return EntityAlgorithmRelation }

// AlgorithmRelationType names a kind of algorithm relation.
type AlgorithmRelationType struct {
	Base
	Name            string `json:"name" validate:"required"`
	InverseTypeName string `json:"inverse_type_name,omitempty"`
}

// Entity returns EntityAlgorithmRelationType.
func (AlgorithmRelationType) Entity() EntityType { return EntityAlgorithmRelationType }

// PatternRelation links an algorithm to an external pattern description.
type PatternRelation struct {
	Base
	AlgorithmID           string `json:"algorithm_id" validate:"required"`
	PatternRelationTypeID string `json:"pattern_relation_type_id" validate:"required"`
	Pattern               string `json:"pattern" validate:"required,url"`
	Description           string `json:"description,omitempty"`
}

// Entity returns EntityPatternRelation.
func (PatternRelation) Entity() EntityType { return EntityPatternRelation }

// PatternRelationType names a kind of pattern relation.
type PatternRelationType struct {
	Base
	Name string `json:"name" validate:"required"`
}

// Entity returns EntityPatternRelationType.
func (PatternRelationType) Entity() EntityType { return EntityPatternRelationType }

// File is an attachment of an implementation; the content lives in the blob store under BlobKey.
type File struct {
	Base
	ImplementationID string `json:"implementation_id" validate:"required"`
	Name             string `json:"name" validate:"required"`
	MimeType         string `json:"mime_type,omitempty"`
	Size             int64  `json:"size"`
	BlobKey          string `json:"blob_key"`
}

// Entity returns EntityFile.
func (File) Entity() EntityType { return EntityFile }

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the mutations captured in a transaction.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionLink indicates an association row was inserted.
	ActionLink Action = "link"
	// ActionUnlink indicates an association row was removed.
	ActionUnlink Action = "unlink"
)

// Change records a mutation applied within a transaction. For link and unlink
// actions Entity is the left kind of the association and After/Before hold the Link.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}
