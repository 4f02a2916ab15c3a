package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"qcatlas/pkg/domain"
)

func TestLinkUnlinkAlgorithmPublicationScenario(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	x := mustCreate(t, svc, quantumAlgorithm("X"))
	p := mustCreate(t, svc, domain.Publication{Title: "P"})

	mustLink(t, svc, domain.AssocAlgorithmPublication, x.ID, p.ID)
	pubs, err := svc.FindLinkedPublications(ctx, domain.EntityAlgorithm, x.ID, domain.PageRequest{})
	if err != nil || pubs.Total != 1 || pubs.Items[0].ID != p.ID {
		t.Fatalf("expected {P}, got %+v (%v)", pubs, err)
	}

	_, err = svc.Link(ctx, domain.AssocAlgorithmPublication, x.ID, p.ID)
	var linkErr *domain.LinkError
	if !errors.Is(err, domain.ErrAlreadyLinked) || !errors.Is(err, domain.ErrConstraintViolation) || !errors.As(err, &linkErr) {
		t.Fatalf("expected already linked, got %v", err)
	}

	if _, err := svc.Unlink(ctx, domain.AssocAlgorithmPublication, x.ID, p.ID); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	pubs, err = svc.FindLinkedPublications(ctx, domain.EntityAlgorithm, x.ID, domain.PageRequest{})
	if err != nil || pubs.Total != 0 {
		t.Fatalf("expected {}, got %+v (%v)", pubs, err)
	}

	if _, err := svc.Unlink(ctx, domain.AssocAlgorithmPublication, x.ID, p.ID); !errors.Is(err, domain.ErrNotLinked) {
		t.Fatalf("expected not linked, got %v", err)
	}
}

// createOfKind stores a minimal valid entity of kind and returns its ID.
func createOfKind(t *testing.T, svc *Service, kind domain.EntityType, label string) string {
	t.Helper()
	var rec domain.Record
	switch kind {
	case domain.EntityAlgorithm:
		rec = quantumAlgorithm(label)
	case domain.EntityImplementation:
		alg := mustCreate(t, svc, quantumAlgorithm(label+" algorithm"))
		rec = domain.Implementation{Name: label, AlgorithmID: alg.ID, Kind: domain.KindClassical}
	case domain.EntityPublication:
		rec = domain.Publication{Title: label}
	case domain.EntityProblemType:
		rec = domain.ProblemType{Name: label}
	case domain.EntityApplicationArea:
		rec = domain.ApplicationArea{Name: label}
	case domain.EntityLearningMethod:
		rec = domain.LearningMethod{Name: label}
	case domain.EntityTag:
		rec = domain.Tag{Value: label}
	case domain.EntitySoftwarePlatform:
		rec = domain.SoftwarePlatform{Name: label}
	case domain.EntityCloudService:
		rec = domain.CloudService{Name: label}
	case domain.EntityComputeResource:
		rec = domain.ComputeResource{Name: label}
	case domain.EntityBackend:
		rec = domain.Backend{Name: label}
	default:
		t.Fatalf("no fixture for %s", kind)
	}
	out, _, err := svc.CreateRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("create %s: %v", kind, err)
	}
	return out.RecordID()
}

func TestLinkSymmetry(t *testing.T) {
	ctx := context.Background()
	for _, spec := range domain.Associations() {
		t.Run(string(spec.Name), func(t *testing.T) {
			svc := newTestService(t)
			left := createOfKind(t, svc, spec.Left, "left")
			right := createOfKind(t, svc, spec.Right, "right")

			mustLink(t, svc, spec.Name, left, right)
			forward, err := svc.Linked(ctx, spec.Name, domain.SideLeft, left, domain.PageRequest{})
			if err != nil || forward.Total != 1 || forward.Items[0] != right {
				t.Fatalf("forward: %+v (%v)", forward, err)
			}
			reverse, err := svc.Linked(ctx, spec.Name, domain.SideRight, right, domain.PageRequest{})
			if err != nil || reverse.Total != 1 || reverse.Items[0] != left {
				t.Fatalf("reverse: %+v (%v)", reverse, err)
			}
			if ok, err := svc.IsLinked(ctx, spec.Name, left, right); err != nil || !ok {
				t.Fatalf("expected linked (%v)", err)
			}

			if _, err := svc.Link(ctx, spec.Name, left, right); !errors.Is(err, domain.ErrAlreadyLinked) {
				t.Fatalf("expected already linked, got %v", err)
			}

			if _, err := svc.Unlink(ctx, spec.Name, left, right); err != nil {
				t.Fatalf("unlink: %v", err)
			}
			forward, _ = svc.Linked(ctx, spec.Name, domain.SideLeft, left, domain.PageRequest{})
			reverse, _ = svc.Linked(ctx, spec.Name, domain.SideRight, right, domain.PageRequest{})
			if forward.Total != 0 || reverse.Total != 0 {
				t.Fatalf("both directions must follow unlink: %+v %+v", forward, reverse)
			}

			if _, err := svc.Unlink(ctx, spec.Name, left, right); !errors.Is(err, domain.ErrNotLinked) {
				t.Fatalf("expected not linked, got %v", err)
			}
		})
	}
}

func TestTypedLinkedLookupFollowsReverseSide(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	sp := mustCreate(t, svc, domain.SoftwarePlatform{Name: "Qiskit"})
	cs := mustCreate(t, svc, domain.CloudService{Name: "IBM Quantum"})
	mustLink(t, svc, domain.AssocSoftwarePlatformCloudService, sp.ID, cs.ID)

	platforms, err := svc.FindLinkedSoftwarePlatforms(ctx, domain.EntityCloudService, cs.ID, domain.PageRequest{})
	if err != nil || platforms.Total != 1 || platforms.Items[0].Name != "Qiskit" {
		t.Fatalf("typed reverse: %+v (%v)", platforms, err)
	}
}

func TestConcurrentLinkStoresOneRow(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	alg := mustCreate(t, svc, quantumAlgorithm("VQE"))
	tag := mustCreate(t, svc, domain.Tag{Value: "variational"})

	const workers = 16
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		errs      = make(chan error, workers)
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Link(ctx, domain.AssocAlgorithmTag, alg.ID, tag.ID)
			switch {
			case err == nil:
				succeeded.Add(1)
			case !errors.Is(err, domain.ErrAlreadyLinked):
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected link error: %v", err)
	}
	if got := succeeded.Load(); got != 1 {
		t.Fatalf("expected exactly one successful link, got %d", got)
	}
	linked, err := svc.Linked(ctx, domain.AssocAlgorithmTag, domain.SideLeft, alg.ID, domain.PageRequest{})
	if err != nil || linked.Total != 1 {
		t.Fatalf("expected a single row, got %+v (%v)", linked, err)
	}
}

func TestLinkResolvesBothSides(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	alg := mustCreate(t, svc, quantumAlgorithm("HHL"))
	area := mustCreate(t, svc, domain.ApplicationArea{Name: "linear systems"})

	cases := []struct {
		name        string
		assoc       domain.Association
		left, right string
		want        error
		kind        domain.EntityType
	}{
		{"missing left", domain.AssocAlgorithmApplicationArea, "ghost", area.ID, domain.ErrNotFound, domain.EntityAlgorithm},
		{"missing right", domain.AssocAlgorithmApplicationArea, alg.ID, "ghost", domain.ErrNotFound, domain.EntityApplicationArea},
		{"swapped sides", domain.AssocAlgorithmApplicationArea, area.ID, alg.ID, domain.ErrNotFound, domain.EntityAlgorithm},
		{"unknown association", "algorithm_algorithm", alg.ID, area.ID, domain.ErrInvalidValue, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Link(ctx, tc.assoc, tc.left, tc.right)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var nf domain.NotFoundError
			if tc.kind != "" && (!errors.As(err, &nf) || nf.Entity != tc.kind) {
				t.Fatalf("expected missing %s, got %v", tc.kind, err)
			}
		})
	}
	if _, err := svc.Linked(ctx, domain.AssocAlgorithmApplicationArea, domain.SideLeft, "ghost", domain.PageRequest{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected linked on missing id to fail, got %v", err)
	}
	if _, err := svc.IsLinked(ctx, "nope", "a", "b"); !errors.Is(err, domain.ErrInvalidValue) {
		t.Fatalf("expected invalid association, got %v", err)
	}
}

func TestFindLinkedRejectsUnrelatedKinds(t *testing.T) {
	svc := newTestService(t)
	tag := mustCreate(t, svc, domain.Tag{Value: "oracle"})
	if _, err := FindLinked[domain.ComputeResource](context.Background(), svc, domain.EntityTag, tag.ID, domain.PageRequest{}); !errors.Is(err, domain.ErrInvalidValue) {
		t.Fatalf("expected invalid value, got %v", err)
	}
}

func TestFindLinkedTypedFinders(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	alg := mustCreate(t, svc, quantumAlgorithm("QAOA"))
	pt := mustCreate(t, svc, domain.ProblemType{Name: "max-cut"})
	lm := mustCreate(t, svc, domain.LearningMethod{Name: "variational"})
	area := mustCreate(t, svc, domain.ApplicationArea{Name: "logistics"})
	tag := mustCreate(t, svc, domain.Tag{Value: "nisq"})
	mustLink(t, svc, domain.AssocAlgorithmProblemType, alg.ID, pt.ID)
	mustLink(t, svc, domain.AssocAlgorithmLearningMethod, alg.ID, lm.ID)
	mustLink(t, svc, domain.AssocAlgorithmApplicationArea, alg.ID, area.ID)
	mustLink(t, svc, domain.AssocAlgorithmTag, alg.ID, tag.ID)

	if p, err := svc.FindLinkedProblemTypes(ctx, alg.ID, domain.PageRequest{}); err != nil || p.Total != 1 {
		t.Fatalf("problem types: %+v (%v)", p, err)
	}
	if p, err := svc.FindLinkedLearningMethods(ctx, alg.ID, domain.PageRequest{}); err != nil || p.Total != 1 {
		t.Fatalf("learning methods: %+v (%v)", p, err)
	}
	if p, err := svc.FindLinkedApplicationAreas(ctx, alg.ID, domain.PageRequest{}); err != nil || p.Total != 1 {
		t.Fatalf("application areas: %+v (%v)", p, err)
	}
	if p, err := svc.FindLinkedTags(ctx, domain.EntityAlgorithm, alg.ID, domain.PageRequest{}); err != nil || p.Total != 1 {
		t.Fatalf("tags: %+v (%v)", p, err)
	}
	if p, err := svc.FindLinkedAlgorithms(ctx, domain.EntityTag, tag.ID, domain.PageRequest{}); err != nil || p.Total != 1 || p.Items[0].ID != alg.ID {
		t.Fatalf("algorithms by tag: %+v (%v)", p, err)
	}
}
