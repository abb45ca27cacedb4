package identity

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/photonest/photonestbackend/models"
)

// fakeStore is an in-memory Store/Tx implementation. Transact snapshots state
// and restores it when the function fails, mirroring transactional rollback.
type fakeStore struct {
	nextPersonID uint
	persons      map[uint]*models.Person
	faces        map[uint]*models.Face
	links        map[uint][]string
	conflicts    []*models.MergeConflict

	failAssign bool
}

func newFakeStore(faces ...*models.Face) *fakeStore {
	s := &fakeStore{
		nextPersonID: 1,
		persons:      make(map[uint]*models.Person),
		faces:        make(map[uint]*models.Face),
		links:        make(map[uint][]string),
	}
	for _, f := range faces {
		s.faces[f.ID] = f
	}
	return s
}

func (s *fakeStore) addPerson(displayName string) uint {
	id := s.nextPersonID
	s.nextPersonID++
	s.persons[id] = &models.Person{ID: id, DisplayName: displayName}
	return id
}

func (s *fakeStore) Transact(_ context.Context, fn func(tx Tx) error) error {
	snapshot := s.clone()
	if err := fn(s); err != nil {
		*s = *snapshot
		return err
	}
	return nil
}

func (s *fakeStore) clone() *fakeStore {
	out := newFakeStore()
	out.nextPersonID = s.nextPersonID
	out.failAssign = s.failAssign
	for id, p := range s.persons {
		cp := *p
		out.persons[id] = &cp
	}
	for id, f := range s.faces {
		cf := *f
		out.faces[id] = &cf
	}
	for id, photos := range s.links {
		out.links[id] = append([]string(nil), photos...)
	}
	out.conflicts = append([]*models.MergeConflict(nil), s.conflicts...)
	return out
}

func (s *fakeStore) CreatePerson(person *models.Person) error {
	person.ID = s.nextPersonID
	s.nextPersonID++
	if person.DisplayName == "" {
		person.DisplayName = fmt.Sprintf("Person %d", person.ID)
	}
	cp := *person
	s.persons[person.ID] = &cp
	return nil
}

func (s *fakeStore) AssignFaces(faceIDs []uint, personID uint) error {
	if s.failAssign {
		return errors.New("assign failed")
	}
	for _, id := range faceIDs {
		f, ok := s.faces[id]
		if !ok {
			return fmt.Errorf("unknown face %d", id)
		}
		pid := personID
		f.PersonID = &pid
	}
	return nil
}

func (s *fakeStore) FacesOfPerson(personID uint) ([]models.Face, error) {
	var out []models.Face
	for _, f := range s.faces {
		if f.PersonID != nil && *f.PersonID == personID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdatePersonDerived(personID uint, representativeFaceID *uint, faceCount int) error {
	p, ok := s.persons[personID]
	if !ok {
		return fmt.Errorf("unknown person %d", personID)
	}
	p.RepresentativeFaceID = representativeFaceID
	p.FaceCount = faceCount
	return nil
}

func (s *fakeStore) ReplacePhotoLinks(personID uint, photoIDs []string) error {
	s.links[personID] = append([]string(nil), photoIDs...)
	return nil
}

func (s *fakeStore) RecordConflict(conflict *models.MergeConflict) error {
	s.conflicts = append(s.conflicts, conflict)
	return nil
}

func uintPtr(v uint) *uint { return &v }

func TestReconcileCreatesPersonForNewCluster(t *testing.T) {
	store := newFakeStore(
		&models.Face{ID: 1, PhotoID: "pa", QualityScore: 0.5},
		&models.Face{ID: 2, PhotoID: "pb", QualityScore: 0.9},
	)
	reg := NewRegistry(store)

	report, err := reg.Reconcile(context.Background(), "run-1", []Cluster{
		{TempID: 0, Members: []Member{
			{FaceID: 1, PhotoID: "pa", QualityScore: 0.5},
			{FaceID: 2, PhotoID: "pb", QualityScore: 0.9},
		}},
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.PersonsCreated != 1 || report.PersonsMerged != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
	person, ok := store.persons[1]
	if !ok {
		t.Fatal("expected person 1 to exist")
	}
	if person.DisplayName != "Person 1" {
		t.Errorf("unexpected display name %q", person.DisplayName)
	}
	if person.FaceCount != 2 {
		t.Errorf("expected face count 2, got %d", person.FaceCount)
	}
	if person.RepresentativeFaceID == nil || *person.RepresentativeFaceID != 2 {
		t.Errorf("expected representative face 2, got %v", person.RepresentativeFaceID)
	}
	if got := store.links[1]; !reflect.DeepEqual(got, []string{"pa", "pb"}) {
		t.Errorf("unexpected photo links %v", got)
	}
}

func TestReconcileMergesIntoSingleExistingPerson(t *testing.T) {
	store := newFakeStore(
		&models.Face{ID: 1, PhotoID: "pa", QualityScore: 0.8, PersonID: uintPtr(1)},
		&models.Face{ID: 2, PhotoID: "pb", QualityScore: 0.4},
	)
	personID := store.addPerson("Alice")
	reg := NewRegistry(store)

	report, err := reg.Reconcile(context.Background(), "run-2", []Cluster{
		{TempID: 0, Members: []Member{
			{FaceID: 1, PhotoID: "pa", QualityScore: 0.8, PriorPersonID: uintPtr(personID)},
			{FaceID: 2, PhotoID: "pb", QualityScore: 0.4},
		}},
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.PersonsCreated != 0 || report.PersonsMerged != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
	if f := store.faces[2]; f.PersonID == nil || *f.PersonID != personID {
		t.Errorf("new face must join person %d, got %v", personID, f.PersonID)
	}
	person := store.persons[personID]
	if person.DisplayName != "Alice" {
		t.Errorf("merge must not rename person, got %q", person.DisplayName)
	}
	if person.FaceCount != 2 {
		t.Errorf("expected face count 2, got %d", person.FaceCount)
	}
	if person.RepresentativeFaceID == nil || *person.RepresentativeFaceID != 1 {
		t.Errorf("expected representative face 1, got %v", person.RepresentativeFaceID)
	}
}

func TestReconcileNoNewMembersIsNoop(t *testing.T) {
	store := newFakeStore(
		&models.Face{ID: 1, PhotoID: "pa", QualityScore: 0.8, PersonID: uintPtr(1)},
	)
	store.addPerson("Alice")
	reg := NewRegistry(store)

	report, err := reg.Reconcile(context.Background(), "run-3", []Cluster{
		{TempID: 0, Members: []Member{
			{FaceID: 1, PhotoID: "pa", QualityScore: 0.8, PriorPersonID: uintPtr(1)},
		}},
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.PersonsMerged != 0 || report.PersonsCreated != 0 {
		t.Errorf("re-confirming membership must not count as a merge: %+v", report)
	}
}

func TestReconcileRecordsConflictWithoutMerging(t *testing.T) {
	store := newFakeStore(
		&models.Face{ID: 1, PhotoID: "pa", QualityScore: 0.8, PersonID: uintPtr(1)},
		&models.Face{ID: 2, PhotoID: "pb", QualityScore: 0.7, PersonID: uintPtr(2)},
		&models.Face{ID: 3, PhotoID: "pc", QualityScore: 0.6},
	)
	store.addPerson("X")
	store.addPerson("Y")
	reg := NewRegistry(store)

	report, err := reg.Reconcile(context.Background(), "run-4", []Cluster{
		{TempID: 0, Members: []Member{
			{FaceID: 1, PhotoID: "pa", QualityScore: 0.8, PriorPersonID: uintPtr(1)},
			{FaceID: 2, PhotoID: "pb", QualityScore: 0.7, PriorPersonID: uintPtr(2)},
			{FaceID: 3, PhotoID: "pc", QualityScore: 0.6},
		}},
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Conflicts) != 1 {
		t.Fatalf("expected one conflict, got %+v", report.Conflicts)
	}
	if !reflect.DeepEqual(report.Conflicts[0].PersonIDs, []uint{1, 2}) {
		t.Errorf("conflict must list both persons, got %v", report.Conflicts[0].PersonIDs)
	}
	if report.PersonsMerged != 0 || report.PersonsCreated != 0 {
		t.Errorf("conflicted cluster must not create or merge: %+v", report)
	}

	// memberships are untouched, the unassigned face stays unassigned
	if f := store.faces[1]; *f.PersonID != 1 {
		t.Errorf("face 1 must keep person 1, got %v", f.PersonID)
	}
	if f := store.faces[2]; *f.PersonID != 2 {
		t.Errorf("face 2 must keep person 2, got %v", f.PersonID)
	}
	if f := store.faces[3]; f.PersonID != nil {
		t.Errorf("face 3 must stay unassigned, got %v", f.PersonID)
	}

	if len(store.conflicts) != 1 {
		t.Fatalf("expected one persisted conflict, got %d", len(store.conflicts))
	}
	ids, err := store.conflicts[0].PersonIDs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(ids, []uint{1, 2}) {
		t.Errorf("persisted conflict must list both persons, got %v", ids)
	}
}

func TestReconcileManyPersonCollisionIsOneConflict(t *testing.T) {
	store := newFakeStore(
		&models.Face{ID: 1, PhotoID: "pa", PersonID: uintPtr(1)},
		&models.Face{ID: 2, PhotoID: "pb", PersonID: uintPtr(2)},
		&models.Face{ID: 3, PhotoID: "pc", PersonID: uintPtr(3)},
	)
	store.addPerson("A")
	store.addPerson("B")
	store.addPerson("C")
	reg := NewRegistry(store)

	report, err := reg.Reconcile(context.Background(), "run-5", []Cluster{
		{TempID: 0, Members: []Member{
			{FaceID: 1, PhotoID: "pa", PriorPersonID: uintPtr(1)},
			{FaceID: 2, PhotoID: "pb", PriorPersonID: uintPtr(2)},
			{FaceID: 3, PhotoID: "pc", PriorPersonID: uintPtr(3)},
		}},
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Conflicts) != 1 {
		t.Fatalf("expected a single conflict, got %d", len(report.Conflicts))
	}
	if !reflect.DeepEqual(report.Conflicts[0].PersonIDs, []uint{1, 2, 3}) {
		t.Errorf("conflict must list all three persons, got %v", report.Conflicts[0].PersonIDs)
	}
}

func TestReconcileCountsNoiseWithoutTouchingIt(t *testing.T) {
	store := newFakeStore(
		&models.Face{ID: 1, PhotoID: "pa", QualityScore: 0.8, PersonID: uintPtr(1)},
	)
	store.addPerson("Alice")
	reg := NewRegistry(store)

	report, err := reg.Reconcile(context.Background(), "run-6", nil, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.NoiseFaces != 3 || report.FacesProcessed != 3 {
		t.Errorf("unexpected report: %+v", report)
	}
	if f := store.faces[1]; f.PersonID == nil || *f.PersonID != 1 {
		t.Errorf("noise must never revoke membership, got %v", f.PersonID)
	}
}

func TestReconcileRollsBackOnWriteFailure(t *testing.T) {
	store := newFakeStore(
		&models.Face{ID: 1, PhotoID: "pa", QualityScore: 0.5},
	)
	store.failAssign = true
	reg := NewRegistry(store)

	_, err := reg.Reconcile(context.Background(), "run-7", []Cluster{
		{TempID: 0, Members: []Member{{FaceID: 1, PhotoID: "pa"}}},
	}, 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(store.persons) != 0 {
		t.Errorf("failed run must leave no persons behind, got %d", len(store.persons))
	}
	if f := store.faces[1]; f.PersonID != nil {
		t.Errorf("failed run must leave faces unassigned, got %v", f.PersonID)
	}
}

func TestReconcileDeterministicClusterOrder(t *testing.T) {
	build := func() *fakeStore {
		return newFakeStore(
			&models.Face{ID: 1, PhotoID: "pa", QualityScore: 0.5},
			&models.Face{ID: 2, PhotoID: "pb", QualityScore: 0.6},
		)
	}
	clusters := []Cluster{
		{TempID: 1, Members: []Member{{FaceID: 2, PhotoID: "pb", QualityScore: 0.6}}},
		{TempID: 0, Members: []Member{{FaceID: 1, PhotoID: "pa", QualityScore: 0.5}}},
	}
	reversed := []Cluster{clusters[1], clusters[0]}

	a := build()
	if _, err := NewRegistry(a).Reconcile(context.Background(), "run-8", clusters, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := build()
	if _, err := NewRegistry(b).Reconcile(context.Background(), "run-8", reversed, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// cluster 0 gets person 1 in both orders
	if *a.faces[1].PersonID != *b.faces[1].PersonID {
		t.Errorf("person assignment depends on input order: %d vs %d",
			*a.faces[1].PersonID, *b.faces[1].PersonID)
	}
}
