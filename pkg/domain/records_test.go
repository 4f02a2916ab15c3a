package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestWithBaseAndBaseOf(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := WithBase(Tag{Value: "nisq"}, Base{ID: "t1", CreatedAt: now, UpdatedAt: now})
	tag, ok := As[Tag](rec)
	if !ok || tag.ID != "t1" || tag.Value != "nisq" {
		t.Fatalf("unexpected tag %+v", rec)
	}
	if b := BaseOf(rec); b.ID != "t1" || !b.CreatedAt.Equal(now) {
		t.Fatalf("unexpected base %+v", b)
	}
}

func TestCloneRecordIsDeep(t *testing.T) {
	alg := Algorithm{Name: "Grover", Kind: KindQuantum, Quantum: &QuantumAlgorithmDetails{ComputationModel: ModelGateBased}}
	cp := CloneRecord(alg).(Algorithm)
	cp.Quantum.NisqReady = true
	if alg.Quantum.NisqReady {
		t.Fatalf("clone shares quantum payload")
	}
	pub := Publication{Title: "t", Authors: []string{"a"}}
	cpPub := CloneRecord(pub).(Publication)
	cpPub.Authors[0] = "b"
	if pub.Authors[0] != "a" {
		t.Fatalf("clone shares authors")
	}
	parent := "root"
	pt := ProblemType{Name: "x", ParentProblemTypeID: &parent}
	cpPT := CloneRecord(pt).(ProblemType)
	*cpPT.ParentProblemTypeID = "other"
	if parent != "root" {
		t.Fatalf("clone shares parent pointer")
	}
}

func TestDecodeRecordCoversEveryKind(t *testing.T) {
	for _, kind := range EntityTypes() {
		rec, err := DecodeRecord(kind, []byte(`{"id":"x1"}`))
		if err != nil {
			t.Fatalf("decode %s: %v", kind, err)
		}
		if rec.Entity() != kind || rec.RecordID() != "x1" {
			t.Fatalf("decode %s produced %s/%s", kind, rec.Entity(), rec.RecordID())
		}
		if _, ok := ParseEntityType(string(kind)); !ok {
			t.Fatalf("parse %s failed", kind)
		}
	}
	if _, err := DecodeRecord("nope", []byte(`{}`)); err == nil {
		t.Fatalf("expected unknown kind error")
	}
	if _, err := DecodeRecord(EntityTag, []byte(`{`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestAlgorithmJSONShape(t *testing.T) {
	data, err := json.Marshal(Algorithm{Base: Base{ID: "a"}, Name: "QAOA", Kind: KindHybrid, Quantum: &QuantumAlgorithmDetails{ComputationModel: ModelGateBased, NisqReady: true}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["kind"] != "hybrid" {
		t.Fatalf("expected kind hybrid, got %v", raw["kind"])
	}
	q, ok := raw["quantum"].(map[string]any)
	if !ok || q["computation_model"] != "gate_based" {
		t.Fatalf("unexpected quantum payload %v", raw["quantum"])
	}
}
