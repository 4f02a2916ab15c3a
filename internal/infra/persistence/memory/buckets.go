package memory

import (
	"encoding/json"
	"fmt"
	"sort"

	"qcatlas/pkg/domain"
)

// LinksBucket is the bucket holding every association row.
const LinksBucket = "links"

// Buckets returns the bucket names written by EncodeBuckets in a stable order.
func Buckets() []string {
	out := make([]string, 0, len(domain.EntityTypes())+1)
	for _, kind := range domain.EntityTypes() {
		out = append(out, string(kind))
	}
	return append(out, LinksBucket)
}

// EncodeBuckets serialises a snapshot into one JSON payload per entity kind
// plus a links payload keyed by association.
func EncodeBuckets(snap Snapshot) (map[string][]byte, error) {
	out := make(map[string][]byte, len(snap.Records)+1)
	for _, kind := range domain.EntityTypes() {
		recs := snap.Records[kind]
		if recs == nil {
			recs = []domain.Record{}
		}
		data, err := json.Marshal(recs)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", kind, err)
		}
		out[string(kind)] = data
	}
	links := make(map[domain.Association][]domain.Link, len(snap.Links))
	for assoc, rows := range snap.Links {
		if len(rows) > 0 {
			links[assoc] = rows
		}
	}
	data, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("encode links: %w", err)
	}
	out[LinksBucket] = data
	return out, nil
}

// DecodeBuckets rebuilds a snapshot from bucket payloads. Unknown buckets are ignored.
func DecodeBuckets(buckets map[string][]byte) (Snapshot, error) {
	snap := Snapshot{
		Records: make(map[domain.EntityType][]domain.Record),
		Links:   make(map[domain.Association][]domain.Link),
	}
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		payload := buckets[name]
		if name == LinksBucket {
			if err := json.Unmarshal(payload, &snap.Links); err != nil {
				return Snapshot{}, fmt.Errorf("decode links: %w", err)
			}
			continue
		}
		kind, ok := domain.ParseEntityType(name)
		if !ok {
			continue
		}
		var raws []json.RawMessage
		if err := json.Unmarshal(payload, &raws); err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", kind, err)
		}
		recs := make([]domain.Record, 0, len(raws))
		for _, raw := range raws {
			rec, err := domain.DecodeRecord(kind, raw)
			if err != nil {
				return Snapshot{}, err
			}
			recs = append(recs, rec)
		}
		snap.Records[kind] = recs
	}
	return snap, nil
}
