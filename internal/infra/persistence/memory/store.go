// Package memory provides an in-memory implementation of the catalog
// persistence store used for tests, ephemeral environments and as the working
// set of the snapshotting SQL stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"qcatlas/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type linkKey struct {
	left  string
	right string
}

type memoryState struct {
	records map[domain.EntityType]map[string]domain.Record
	links   map[domain.Association]map[linkKey]struct{}
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Records map[domain.EntityType][]domain.Record
	Links   map[domain.Association][]domain.Link
}

func newMemoryState() memoryState {
	state := memoryState{
		records: make(map[domain.EntityType]map[string]domain.Record),
		links:   make(map[domain.Association]map[linkKey]struct{}),
	}
	for _, kind := range domain.EntityTypes() {
		state.records[kind] = make(map[string]domain.Record)
	}
	for _, spec := range domain.Associations() {
		state.links[spec.Name] = make(map[linkKey]struct{})
	}
	return state
}

func (s memoryState) clone() memoryState {
	cp := memoryState{
		records: make(map[domain.EntityType]map[string]domain.Record, len(s.records)),
		links:   make(map[domain.Association]map[linkKey]struct{}, len(s.links)),
	}
	for kind, table := range s.records {
		t := make(map[string]domain.Record, len(table))
		for id, rec := range table {
			t[id] = domain.CloneRecord(rec)
		}
		cp.records[kind] = t
	}
	for assoc, set := range s.links {
		m := make(map[linkKey]struct{}, len(set))
		for k := range set {
			m[k] = struct{}{}
		}
		cp.links[assoc] = m
	}
	return cp
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	view := transactionView{state: &state}
	snap := Snapshot{
		Records: make(map[domain.EntityType][]domain.Record, len(state.records)),
		Links:   make(map[domain.Association][]domain.Link, len(state.links)),
	}
	for kind := range state.records {
		snap.Records[kind] = view.List(kind)
	}
	for assoc := range state.links {
		snap.Links[assoc] = view.Links(assoc)
	}
	return snap
}

// memoryStateFromSnapshot rebuilds state; records of unknown kinds and rows of
// undeclared associations are dropped.
func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for kind, recs := range s.Records {
		table, ok := state.records[kind]
		if !ok {
			continue
		}
		for _, rec := range recs {
			if rec == nil || rec.Entity() != kind || rec.RecordID() == "" {
				continue
			}
			table[rec.RecordID()] = domain.CloneRecord(rec)
		}
	}
	for assoc, rows := range s.Links {
		set, ok := state.links[assoc]
		if !ok {
			continue
		}
		for _, row := range rows {
			set[linkKey{left: row.LeftID, right: row.RightID}] = struct{}{}
		}
	}
	return state
}

// Store provides an in-memory transactional store for the catalog.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func newID() string {
	return uuid.NewString()
}

// SetNowFunc overrides the clock used to stamp records.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

type transaction struct {
	transactionView
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// Get returns a copy of a record.
func (v transactionView) Get(kind domain.EntityType, id string) (domain.Record, bool) {
	rec, ok := v.state.records[kind][id]
	if !ok {
		return nil, false
	}
	return domain.CloneRecord(rec), true
}

// List returns copies of every record of a kind sorted by ID.
func (v transactionView) List(kind domain.EntityType) []domain.Record {
	table := v.state.records[kind]
	out := make([]domain.Record, 0, len(table))
	for _, rec := range table {
		out = append(out, domain.CloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID() < out[j].RecordID() })
	return out
}

// LinkedIDs returns the IDs opposite id on the given side.
func (v transactionView) LinkedIDs(assoc domain.Association, side domain.Side, id string) []string {
	var out []string
	for k := range v.state.links[assoc] {
		switch {
		case side == domain.SideLeft && k.left == id:
			out = append(out, k.right)
		case side == domain.SideRight && k.right == id:
			out = append(out, k.left)
		}
	}
	sort.Strings(out)
	return out
}

// IsLinked reports whether the row exists.
func (v transactionView) IsLinked(assoc domain.Association, leftID, rightID string) bool {
	_, ok := v.state.links[assoc][linkKey{left: leftID, right: rightID}]
	return ok
}

// CountLinks counts rows touching id on the given side.
func (v transactionView) CountLinks(assoc domain.Association, side domain.Side, id string) int {
	n := 0
	for k := range v.state.links[assoc] {
		if (side == domain.SideLeft && k.left == id) || (side == domain.SideRight && k.right == id) {
			n++
		}
	}
	return n
}

// Links returns every row of an association.
func (v transactionView) Links(assoc domain.Association) []domain.Link {
	set := v.state.links[assoc]
	out := make([]domain.Link, 0, len(set))
	for k := range set {
		out = append(out, domain.Link{Association: assoc, LeftID: k.left, RightID: k.right})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LeftID != out[j].LeftID {
			return out[i].LeftID < out[j].LeftID
		}
		return out[i].RightID < out[j].RightID
	})
	return out
}

// CommitFunc persists a transaction's final state before it becomes live.
type CommitFunc func(ctx context.Context, next Snapshot) error

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the live state only when fn succeeds and no rule blocks.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	return s.RunInTransactionCommit(ctx, fn, nil)
}

// RunInTransactionCommit is RunInTransaction with a commit step that runs under
// the store lock after rules pass. The live state is swapped only when commit
// succeeds, so a failed write leaves the store untouched.
func (s *Store) RunInTransactionCommit(ctx context.Context, fn func(tx Transaction) error, commit CommitFunc) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	tx.transactionView = transactionView{state: &tx.state}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newTransactionView(&tx.state), tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if commit != nil {
		if err := commit(ctx, snapshotFromMemoryState(tx.state)); err != nil {
			return result, err
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) table(kind domain.EntityType) (map[string]domain.Record, error) {
	table, ok := tx.state.records[kind]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", kind)
	}
	return table, nil
}

// Insert stores a new record within the transaction.
func (tx *transaction) Insert(record domain.Record) (domain.Record, error) {
	if record == nil {
		return nil, fmt.Errorf("insert: nil record")
	}
	kind := record.Entity()
	table, err := tx.table(kind)
	if err != nil {
		return nil, err
	}
	base := domain.BaseOf(record)
	if base.ID == "" {
		base.ID = newID()
	}
	if _, exists := table[base.ID]; exists {
		return nil, fmt.Errorf("%s %q already exists", kind, base.ID)
	}
	base.CreatedAt = tx.now
	base.UpdatedAt = tx.now
	stored := domain.WithBase(domain.CloneRecord(record), base)
	table[base.ID] = stored
	tx.recordChange(Change{Entity: kind, Action: domain.ActionCreate, After: domain.CloneRecord(stored)})
	return domain.CloneRecord(stored), nil
}

// Replace overwrites an existing record within the transaction.
func (tx *transaction) Replace(record domain.Record) (domain.Record, error) {
	if record == nil {
		return nil, fmt.Errorf("replace: nil record")
	}
	kind := record.Entity()
	table, err := tx.table(kind)
	if err != nil {
		return nil, err
	}
	id := record.RecordID()
	current, ok := table[id]
	if !ok {
		return nil, domain.NewNotFound(kind, id)
	}
	base := domain.BaseOf(current)
	base.UpdatedAt = tx.now
	stored := domain.WithBase(domain.CloneRecord(record), base)
	table[id] = stored
	tx.recordChange(Change{Entity: kind, Action: domain.ActionUpdate, Before: domain.CloneRecord(current), After: domain.CloneRecord(stored)})
	return domain.CloneRecord(stored), nil
}

// Remove deletes a record from the transaction state.
func (tx *transaction) Remove(kind domain.EntityType, id string) error {
	table, err := tx.table(kind)
	if err != nil {
		return err
	}
	current, ok := table[id]
	if !ok {
		return domain.NewNotFound(kind, id)
	}
	delete(table, id)
	tx.recordChange(Change{Entity: kind, Action: domain.ActionDelete, Before: domain.CloneRecord(current)})
	return nil
}

// Link inserts an association row. The set is the uniqueness constraint.
func (tx *transaction) Link(assoc domain.Association, leftID, rightID string) error {
	spec, set, err := tx.linkSet(assoc)
	if err != nil {
		return err
	}
	key := linkKey{left: leftID, right: rightID}
	if _, exists := set[key]; exists {
		return &domain.LinkError{Association: assoc, LeftID: leftID, RightID: rightID, Err: domain.ErrAlreadyLinked}
	}
	set[key] = struct{}{}
	tx.recordChange(Change{Entity: spec.Left, Action: domain.ActionLink, After: domain.Link{Association: assoc, LeftID: leftID, RightID: rightID}})
	return nil
}

// Unlink removes an association row.
func (tx *transaction) Unlink(assoc domain.Association, leftID, rightID string) error {
	spec, set, err := tx.linkSet(assoc)
	if err != nil {
		return err
	}
	key := linkKey{left: leftID, right: rightID}
	if _, exists := set[key]; !exists {
		return &domain.LinkError{Association: assoc, LeftID: leftID, RightID: rightID, Err: domain.ErrNotLinked}
	}
	delete(set, key)
	tx.recordChange(Change{Entity: spec.Left, Action: domain.ActionUnlink, Before: domain.Link{Association: assoc, LeftID: leftID, RightID: rightID}})
	return nil
}

func (tx *transaction) linkSet(assoc domain.Association) (domain.AssociationSpec, map[linkKey]struct{}, error) {
	spec, ok := domain.LookupAssociation(assoc)
	if !ok {
		return domain.AssociationSpec{}, nil, fmt.Errorf("unknown association %q", assoc)
	}
	return spec, tx.state.links[assoc], nil
}
