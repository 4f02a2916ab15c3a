package domain

import "sort"

// Association names a declared many-to-many pair between two entity kinds.
// Each association is persisted as a single set of (left, right) rows; both
// directions are answered by querying that set.
type Association string

// Declared associations.
const (
	AssocAlgorithmPublication             Association = "algorithm_publication"
	AssocAlgorithmProblemType             Association = "algorithm_problem_type"
	AssocAlgorithmApplicationArea         Association = "algorithm_application_area"
	AssocAlgorithmLearningMethod          Association = "algorithm_learning_method"
	AssocImplementationPublication        Association = "implementation_publication"
	AssocImplementationSoftwarePlatform   Association = "implementation_software_platform"
	AssocSoftwarePlatformCloudService     Association = "software_platform_cloud_service"
	AssocSoftwarePlatformComputeResource  Association = "software_platform_compute_resource"
	AssocCloudServiceComputeResource      Association = "cloud_service_compute_resource"
	AssocAlgorithmTag                     Association = "algorithm_tag"
	AssocImplementationTag                Association = "implementation_tag"
	AssocSoftwarePlatformBackend          Association = "software_platform_backend"
	AssocCloudServiceBackend              Association = "cloud_service_backend"
)

// Side selects one end of an association.
type Side int

// Association sides.
const (
	SideLeft Side = iota
	SideRight
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// AssociationSpec describes the entity kinds on each side of an association.
type AssociationSpec struct {
	Name  Association
	Left  EntityType
	Right EntityType
}

// KindOn returns the entity kind stored on the given side.
func (s AssociationSpec) KindOn(side Side) EntityType {
	if side == SideLeft {
		return s.Left
	}
	return s.Right
}

// SideOf reports which side holds the given kind. Associations never join a kind to itself.
func (s AssociationSpec) SideOf(kind EntityType) (Side, bool) {
	switch kind {
	case s.Left:
		return SideLeft, true
	case s.Right:
		return SideRight, true
	default:
		return SideLeft, false
	}
}

var associationRegistry = map[Association]AssociationSpec{
	AssocAlgorithmPublication:            {AssocAlgorithmPublication, EntityAlgorithm, EntityPublication},
	AssocAlgorithmProblemType:            {AssocAlgorithmProblemType, EntityAlgorithm, EntityProblemType},
	AssocAlgorithmApplicationArea:        {AssocAlgorithmApplicationArea, EntityAlgorithm, EntityApplicationArea},
	AssocAlgorithmLearningMethod:         {AssocAlgorithmLearningMethod, EntityAlgorithm, EntityLearningMethod},
	AssocImplementationPublication:       {AssocImplementationPublication, EntityImplementation, EntityPublication},
	AssocImplementationSoftwarePlatform:  {AssocImplementationSoftwarePlatform, EntityImplementation, EntitySoftwarePlatform},
	AssocSoftwarePlatformCloudService:    {AssocSoftwarePlatformCloudService, EntitySoftwarePlatform, EntityCloudService},
	AssocSoftwarePlatformComputeResource: {AssocSoftwarePlatformComputeResource, EntitySoftwarePlatform, EntityComputeResource},
	AssocCloudServiceComputeResource:     {AssocCloudServiceComputeResource, EntityCloudService, EntityComputeResource},
	AssocAlgorithmTag:                    {AssocAlgorithmTag, EntityAlgorithm, EntityTag},
	AssocImplementationTag:               {AssocImplementationTag, EntityImplementation, EntityTag},
	AssocSoftwarePlatformBackend:         {AssocSoftwarePlatformBackend, EntitySoftwarePlatform, EntityBackend},
	AssocCloudServiceBackend:             {AssocCloudServiceBackend, EntityCloudService, EntityBackend},
}

// LookupAssociation returns the spec of a declared association.
func LookupAssociation(name Association) (AssociationSpec, bool) {
	spec, ok := associationRegistry[name]
	return spec, ok
}

// Associations returns all declared associations sorted by name.
func Associations() []AssociationSpec {
	out := make([]AssociationSpec, 0, len(associationRegistry))
	for _, spec := range associationRegistry {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AssociationsOf returns every association with kind on either side, sorted by name.
func AssociationsOf(kind EntityType) []AssociationSpec {
	var out []AssociationSpec
	for _, spec := range Associations() {
		if spec.Left == kind || spec.Right == kind {
			out = append(out, spec)
		}
	}
	return out
}

// Link is a single association row.
type Link struct {
	Association Association `json:"association"`
	LeftID      string      `json:"left_id"`
	RightID     string      `json:"right_id"`
}
