package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
)

var prototypes = map[EntityType]Record{
	EntityAlgorithm:                   Algorithm{},
	EntityImplementation:              Implementation{},
	EntitySoftwarePlatform:            SoftwarePlatform{},
	EntityCloudService:                CloudService{},
	EntityComputeResource:             ComputeResource{},
	EntityBackend:                     Backend{},
	EntityComputeResourceProperty:     ComputeResourceProperty{},
	EntityComputeResourcePropertyType: ComputeResourcePropertyType{},
	EntityPublication:                 Publication{},
	EntityProblemType:                 ProblemType{},
	EntityApplicationArea:             ApplicationArea{},
	EntityLearningMethod:              LearningMethod{},
	EntityTag:                         Tag{},
	EntityAlgorithmRelation:           AlgorithmRelation{},
	EntityAlgorithmRelationType:       AlgorithmRelationType{},
	EntityPatternRelation:             PatternRelation{},
	EntityPatternRelationType:         PatternRelationType{},
	EntityFile:                        File{},
}

type baseRef interface{ BaseRef() *Base }

// BaseOf returns the embedded base of a record.
func BaseOf(r Record) Base {
	ptr := reflect.New(reflect.TypeOf(r))
	ptr.Elem().Set(reflect.ValueOf(r))
	return *ptr.Interface().(baseRef).BaseRef()
}

// WithBase returns a copy of r carrying b.
func WithBase(r Record, b Base) Record {
	ptr := reflect.New(reflect.TypeOf(r))
	ptr.Elem().Set(reflect.ValueOf(r))
	*ptr.Interface().(baseRef).BaseRef() = b
	return ptr.Elem().Interface().(Record)
}

// CloneRecord returns a deep copy of r.
func CloneRecord(r Record) Record {
	switch v := r.(type) {
	case Algorithm:
		return v.Clone()
	case Implementation:
		return v.Clone()
	case Publication:
		return v.Clone()
	case ProblemType:
		return v.Clone()
	default:
		return r
	}
}

// DecodeRecord unmarshals raw JSON into a record of the given kind.
func DecodeRecord(kind EntityType, raw []byte) (Record, error) {
	proto, ok := prototypes[kind]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", kind)
	}
	ptr := reflect.New(reflect.TypeOf(proto))
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return ptr.Elem().Interface().(Record), nil
}

// As converts a record to its concrete type.
func As[T Record](r Record) (T, bool) {
	v, ok := r.(T)
	return v, ok
}
