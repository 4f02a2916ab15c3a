package core

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"qcatlas/internal/blob"
	"qcatlas/pkg/domain"
)

func TestDeleteAlgorithmCascades(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	alg := mustCreate(t, svc, quantumAlgorithm("Shor"))
	peer := mustCreate(t, svc, quantumAlgorithm("QFT"))
	pub := mustCreate(t, svc, domain.Publication{Title: "Polynomial-time algorithms"})
	area := mustCreate(t, svc, domain.ApplicationArea{Name: "cryptanalysis"})
	pt := mustCreate(t, svc, domain.ProblemType{Name: "factoring"})
	tag := mustCreate(t, svc, domain.Tag{Value: "famous"})
	propType := mustCreate(t, svc, domain.ComputeResourcePropertyType{Name: "qubits", DataType: domain.DataTypeInteger})
	relType := mustCreate(t, svc, domain.AlgorithmRelationType{Name: "uses"})
	patType := mustCreate(t, svc, domain.PatternRelationType{Name: "implements"})
	platform := mustCreate(t, svc, domain.SoftwarePlatform{Name: "Qiskit"})

	var implIDs []string
	for _, name := range []string{"shor-qiskit", "shor-cirq"} {
		impl := mustCreate(t, svc, domain.Implementation{Name: name, AlgorithmID: alg.ID, Kind: domain.KindClassical})
		implIDs = append(implIDs, impl.ID)
		mustCreate(t, svc, domain.ComputeResourceProperty{TypeID: propType.ID, Value: "8", Owner: domain.PropertyOwner{Kind: domain.EntityImplementation, ID: impl.ID}})
		mustLink(t, svc, domain.AssocImplementationPublication, impl.ID, pub.ID)
		mustLink(t, svc, domain.AssocImplementationSoftwarePlatform, impl.ID, platform.ID)
	}
	file, err := svc.AttachFile(ctx, implIDs[0], "shor.py", "text/x-python", bytes.NewBufferString("print('shor')"))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	for i := 0; i < 3; i++ {
		mustCreate(t, svc, domain.ComputeResourceProperty{TypeID: propType.ID, Value: "2048", Owner: domain.PropertyOwner{Kind: domain.EntityAlgorithm, ID: alg.ID}})
	}
	mustCreate(t, svc, domain.AlgorithmRelation{SourceAlgorithmID: alg.ID, TargetAlgorithmID: peer.ID, RelationTypeID: relType.ID})
	mustCreate(t, svc, domain.AlgorithmRelation{SourceAlgorithmID: peer.ID, TargetAlgorithmID: alg.ID, RelationTypeID: relType.ID})
	mustCreate(t, svc, domain.PatternRelation{AlgorithmID: alg.ID, PatternRelationTypeID: patType.ID, Pattern: "https://patterns.example.org/qft"})
	mustLink(t, svc, domain.AssocAlgorithmPublication, alg.ID, pub.ID)
	mustLink(t, svc, domain.AssocAlgorithmApplicationArea, alg.ID, area.ID)
	mustLink(t, svc, domain.AssocAlgorithmProblemType, alg.ID, pt.ID)
	mustLink(t, svc, domain.AssocAlgorithmTag, alg.ID, tag.ID)

	if _, err := svc.Delete(ctx, domain.EntityAlgorithm, alg.ID); err != nil {
		t.Fatalf("delete algorithm: %v", err)
	}

	for _, kind := range []domain.EntityType{
		domain.EntityImplementation,
		domain.EntityComputeResourceProperty,
		domain.EntityAlgorithmRelation,
		domain.EntityPatternRelation,
		domain.EntityFile,
	} {
		page, err := svc.ListRecords(ctx, kind, domain.PageRequest{})
		if err != nil || page.Total != 0 {
			t.Fatalf("expected no %s rows, got %d (%v)", kind, page.Total, err)
		}
	}
	for _, ref := range []struct {
		kind domain.EntityType
		id   string
	}{
		{domain.EntityPublication, pub.ID},
		{domain.EntityApplicationArea, area.ID},
		{domain.EntityProblemType, pt.ID},
		{domain.EntityTag, tag.ID},
		{domain.EntitySoftwarePlatform, platform.ID},
		{domain.EntityAlgorithm, peer.ID},
	} {
		if ok, _ := svc.Exists(ctx, ref.kind, ref.id); !ok {
			t.Fatalf("%s %s must survive", ref.kind, ref.id)
		}
	}
	algs, err := svc.FindLinkedAlgorithms(ctx, domain.EntityPublication, pub.ID, domain.PageRequest{})
	if err != nil || algs.Total != 0 {
		t.Fatalf("publication still references deleted algorithm: %+v", algs)
	}
	impls, err := svc.FindLinkedImplementations(ctx, domain.EntitySoftwarePlatform, platform.ID, domain.PageRequest{})
	if err != nil || impls.Total != 0 {
		t.Fatalf("platform still references deleted implementations: %+v", impls)
	}
	if _, err := svc.BlobStore().Head(ctx, file.BlobKey); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected attachment blob removed, got %v", err)
	}
}

func TestDeleteComputeResourceHardBlock(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	qpu := mustCreate(t, svc, domain.ComputeResource{Name: "Aspen-9"})
	cs := mustCreate(t, svc, domain.CloudService{Name: "Braket"})
	propType := mustCreate(t, svc, domain.ComputeResourcePropertyType{Name: "t1", DataType: domain.DataTypeFloat})
	mustCreate(t, svc, domain.ComputeResourceProperty{TypeID: propType.ID, Value: "18.5", Owner: domain.PropertyOwner{Kind: domain.EntityComputeResource, ID: qpu.ID}})
	mustLink(t, svc, domain.AssocCloudServiceComputeResource, cs.ID, qpu.ID)

	_, err := svc.Delete(ctx, domain.EntityComputeResource, qpu.ID)
	var inUse *domain.InUseError
	if !errors.Is(err, domain.ErrStillInUse) || !errors.Is(err, domain.ErrConstraintViolation) || !errors.As(err, &inUse) {
		t.Fatalf("expected still in use, got %v", err)
	}
	if inUse.ReferencedBy != string(domain.EntityCloudService) || inUse.Count != 1 {
		t.Fatalf("unexpected in-use detail %+v", inUse)
	}
	if ok, _ := svc.IsLinked(ctx, domain.AssocCloudServiceComputeResource, cs.ID, qpu.ID); !ok {
		t.Fatalf("link must remain after refused delete")
	}
	if props, _ := svc.PropertiesOf(ctx, domain.EntityComputeResource, qpu.ID, domain.PageRequest{}); props.Total != 1 {
		t.Fatalf("no partial cascade allowed, got %d properties", props.Total)
	}

	if _, err := svc.Unlink(ctx, domain.AssocCloudServiceComputeResource, cs.ID, qpu.ID); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if _, err := svc.Delete(ctx, domain.EntityComputeResource, qpu.ID); err != nil {
		t.Fatalf("delete after unlink: %v", err)
	}
	if page, _ := svc.ListRecords(ctx, domain.EntityComputeResourceProperty, domain.PageRequest{}); page.Total != 0 {
		t.Fatalf("expected owned properties deleted")
	}
}

func TestDeleteBackendHardBlock(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	backend := mustCreate(t, svc, domain.Backend{Name: "ibmq_qasm_simulator"})
	sp := mustCreate(t, svc, domain.SoftwarePlatform{Name: "Qiskit"})
	mustLink(t, svc, domain.AssocSoftwarePlatformBackend, sp.ID, backend.ID)

	if _, err := svc.Delete(ctx, domain.EntityBackend, backend.ID); !errors.Is(err, domain.ErrStillInUse) {
		t.Fatalf("expected still in use, got %v", err)
	}
	if _, err := svc.Delete(ctx, domain.EntitySoftwarePlatform, sp.ID); err != nil {
		t.Fatalf("delete platform: %v", err)
	}
	if _, err := svc.Delete(ctx, domain.EntityBackend, backend.ID); err != nil {
		t.Fatalf("delete backend after platform removal: %v", err)
	}
}

func TestDeleteReferenceDataProtection(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	alg := mustCreate(t, svc, quantumAlgorithm("Grover"))
	other := mustCreate(t, svc, quantumAlgorithm("Deutsch-Jozsa"))
	propType := mustCreate(t, svc, domain.ComputeResourcePropertyType{Name: "depth", DataType: domain.DataTypeInteger})
	prop := mustCreate(t, svc, domain.ComputeResourceProperty{TypeID: propType.ID, Value: "40", Owner: domain.PropertyOwner{Kind: domain.EntityAlgorithm, ID: alg.ID}})
	relType := mustCreate(t, svc, domain.AlgorithmRelationType{Name: "variant of"})
	rel := mustCreate(t, svc, domain.AlgorithmRelation{SourceAlgorithmID: alg.ID, TargetAlgorithmID: other.ID, RelationTypeID: relType.ID})
	patType := mustCreate(t, svc, domain.PatternRelationType{Name: "uses"})
	pat := mustCreate(t, svc, domain.PatternRelation{AlgorithmID: alg.ID, PatternRelationTypeID: patType.ID, Pattern: "https://patterns.example.org/oracle"})
	lm := mustCreate(t, svc, domain.LearningMethod{Name: "supervised"})
	area := mustCreate(t, svc, domain.ApplicationArea{Name: "search"})
	mustLink(t, svc, domain.AssocAlgorithmLearningMethod, alg.ID, lm.ID)
	mustLink(t, svc, domain.AssocAlgorithmApplicationArea, alg.ID, area.ID)

	cases := []struct {
		kind    domain.EntityType
		id      string
		release func() error
		refKind domain.EntityType
	}{
		{domain.EntityComputeResourcePropertyType, propType.ID, func() error {
			_, err := svc.Delete(ctx, domain.EntityComputeResourceProperty, prop.ID)
			return err
		}, domain.EntityComputeResourceProperty},
		{domain.EntityAlgorithmRelationType, relType.ID, func() error {
			_, err := svc.Delete(ctx, domain.EntityAlgorithmRelation, rel.ID)
			return err
		}, domain.EntityAlgorithmRelation},
		{domain.EntityPatternRelationType, patType.ID, func() error {
			_, err := svc.Delete(ctx, domain.EntityPatternRelation, pat.ID)
			return err
		}, domain.EntityPatternRelation},
		{domain.EntityLearningMethod, lm.ID, func() error {
			_, err := svc.Unlink(ctx, domain.AssocAlgorithmLearningMethod, alg.ID, lm.ID)
			return err
		}, domain.EntityAlgorithm},
		{domain.EntityApplicationArea, area.ID, func() error {
			_, err := svc.Unlink(ctx, domain.AssocAlgorithmApplicationArea, alg.ID, area.ID)
			return err
		}, domain.EntityAlgorithm},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			_, err := svc.Delete(ctx, tc.kind, tc.id)
			var inUse *domain.InUseError
			if !errors.As(err, &inUse) || inUse.ReferencedBy != string(tc.refKind) {
				t.Fatalf("expected in use by %s, got %v", tc.refKind, err)
			}
			if ok, _ := svc.Exists(ctx, tc.kind, tc.id); !ok {
				t.Fatalf("refused delete must keep the entity")
			}
			if err := tc.release(); err != nil {
				t.Fatalf("release reference: %v", err)
			}
			if _, err := svc.Delete(ctx, tc.kind, tc.id); err != nil {
				t.Fatalf("delete after release: %v", err)
			}
		})
	}
}

func TestDeleteProblemTypeOrphansChildren(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	root := mustCreate(t, svc, domain.ProblemType{Name: "optimization"})
	child := mustCreate(t, svc, domain.ProblemType{Name: "max-cut", ParentProblemTypeID: &root.ID})
	alg := mustCreate(t, svc, quantumAlgorithm("QAOA"))
	mustLink(t, svc, domain.AssocAlgorithmProblemType, alg.ID, root.ID)

	if _, err := svc.Delete(ctx, domain.EntityProblemType, root.ID); err != nil {
		t.Fatalf("delete problem type: %v", err)
	}
	got, err := Get[domain.ProblemType](ctx, svc, child.ID)
	if err != nil || got.ParentProblemTypeID != nil {
		t.Fatalf("expected orphaned child, got %+v (%v)", got, err)
	}
	if pts, _ := svc.FindLinkedProblemTypes(ctx, alg.ID, domain.PageRequest{}); pts.Total != 0 {
		t.Fatalf("algorithm still references deleted problem type")
	}
}

func TestDeleteDetachesSharedEntities(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	alg := mustCreate(t, svc, quantumAlgorithm("Simon"))
	impl := mustCreate(t, svc, domain.Implementation{Name: "simon", AlgorithmID: alg.ID, Kind: domain.KindClassical})
	pub := mustCreate(t, svc, domain.Publication{Title: "On the power of quantum computation"})
	tag := mustCreate(t, svc, domain.Tag{Value: "oracle"})
	sp := mustCreate(t, svc, domain.SoftwarePlatform{Name: "Cirq"})
	cs := mustCreate(t, svc, domain.CloudService{Name: "Google Quantum AI"})
	mustLink(t, svc, domain.AssocAlgorithmPublication, alg.ID, pub.ID)
	mustLink(t, svc, domain.AssocImplementationPublication, impl.ID, pub.ID)
	mustLink(t, svc, domain.AssocImplementationTag, impl.ID, tag.ID)
	mustLink(t, svc, domain.AssocImplementationSoftwarePlatform, impl.ID, sp.ID)
	mustLink(t, svc, domain.AssocSoftwarePlatformCloudService, sp.ID, cs.ID)

	for _, step := range []struct {
		kind domain.EntityType
		id   string
	}{
		{domain.EntityPublication, pub.ID},
		{domain.EntityTag, tag.ID},
		{domain.EntityCloudService, cs.ID},
		{domain.EntitySoftwarePlatform, sp.ID},
	} {
		if _, err := svc.Delete(ctx, step.kind, step.id); err != nil {
			t.Fatalf("delete %s: %v", step.kind, err)
		}
	}
	if ok, _ := svc.Exists(ctx, domain.EntityImplementation, impl.ID); !ok {
		t.Fatalf("implementation must survive detach")
	}
	for _, assoc := range domain.AssociationsOf(domain.EntityImplementation) {
		side, _ := assoc.SideOf(domain.EntityImplementation)
		page, err := svc.Linked(ctx, assoc.Name, side, impl.ID, domain.PageRequest{})
		if err != nil || page.Total != 0 {
			t.Fatalf("%s still holds rows: %+v", assoc.Name, page)
		}
	}
}

func TestDeleteUnknownKind(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Delete(context.Background(), "qubit", "1"); !errors.Is(err, domain.ErrInvalidValue) {
		t.Fatalf("expected invalid value, got %v", err)
	}
}
