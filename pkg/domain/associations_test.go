package domain

import "testing"

func TestAssociationRegistry(t *testing.T) {
	specs := Associations()
	if len(specs) != 13 {
		t.Fatalf("expected 13 associations, got %d", len(specs))
	}
	for i := 1; i < len(specs); i++ {
		if specs[i-1].Name >= specs[i].Name {
			t.Fatalf("associations not sorted: %s >= %s", specs[i-1].Name, specs[i].Name)
		}
	}
	for _, spec := range specs {
		if spec.Left == spec.Right {
			t.Fatalf("%s joins %s to itself", spec.Name, spec.Left)
		}
		got, ok := LookupAssociation(spec.Name)
		if !ok || got != spec {
			t.Fatalf("lookup %s mismatch", spec.Name)
		}
	}
	if _, ok := LookupAssociation("algorithm_algorithm"); ok {
		t.Fatalf("unexpected association")
	}
}

func TestAssociationSides(t *testing.T) {
	spec, _ := LookupAssociation(AssocCloudServiceComputeResource)
	side, ok := spec.SideOf(EntityComputeResource)
	if !ok || side != SideRight {
		t.Fatalf("expected compute resource on right side")
	}
	if spec.KindOn(side.Opposite()) != EntityCloudService {
		t.Fatalf("expected cloud service opposite compute resource")
	}
	if _, ok := spec.SideOf(EntityTag); ok {
		t.Fatalf("tag is not part of %s", spec.Name)
	}
	if SideLeft.String() != "left" || SideRight.String() != "right" {
		t.Fatalf("unexpected side names")
	}
}

func TestAssociationsOf(t *testing.T) {
	got := AssociationsOf(EntityComputeResource)
	if len(got) != 2 {
		t.Fatalf("expected 2 associations for compute_resource, got %d", len(got))
	}
	if len(AssociationsOf(EntityFile)) != 0 {
		t.Fatalf("files take part in no association")
	}
}
