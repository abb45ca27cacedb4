package identity

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/photonest/photonestbackend/models"
)

// Member is one face of a cluster as the registry sees it: its identifiers
// plus whatever person it belonged to before this run.
type Member struct {
	FaceID        uint
	PhotoID       string
	QualityScore  float64
	PriorPersonID *uint
}

// Cluster is one label group produced by the clustering engine. TempID is the
// per-run label; it carries no meaning across runs and is never persisted as
// identity.
type Cluster struct {
	TempID  int
	Members []Member
}

// Conflict reports a cluster whose members span two or more pre-existing
// persons. The registry never merges these automatically.
type Conflict struct {
	ClusterTempID int
	PersonIDs     []uint
}

// Report summarizes one reconciliation pass.
type Report struct {
	RunID          string     `json:"run_id"`
	FacesProcessed int        `json:"faces_processed"`
	ClustersFormed int        `json:"clusters_formed"`
	NoiseFaces     int        `json:"noise_faces"`
	PersonsCreated int        `json:"persons_created"`
	PersonsMerged  int        `json:"persons_merged"`
	Conflicts      []Conflict `json:"conflicts,omitempty"`
}

// Tx is the write surface the registry uses inside a single transaction.
type Tx interface {
	// CreatePerson inserts the person, assigns its ID, and defaults an empty
	// DisplayName to "Person <ID>".
	CreatePerson(person *models.Person) error
	AssignFaces(faceIDs []uint, personID uint) error
	FacesOfPerson(personID uint) ([]models.Face, error)
	UpdatePersonDerived(personID uint, representativeFaceID *uint, faceCount int) error
	// ReplacePhotoLinks rebuilds the derived photo/person edges for one
	// person from the given photo ID set.
	ReplacePhotoLinks(personID uint, photoIDs []string) error
	RecordConflict(conflict *models.MergeConflict) error
}

// Store runs a function atomically; either every write inside it lands or
// none do.
type Store interface {
	Transact(ctx context.Context, fn func(tx Tx) error) error
}

// Registry reconciles ephemeral cluster labels against persistent persons.
// Reconcile is serialized by a mutex; concurrent runs would otherwise race on
// person creation and membership writes.
type Registry struct {
	mu    sync.Mutex
	store Store
}

// NewRegistry creates a registry backed by the given store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Reconcile applies the incremental merge policy to one run's clusters:
//
//  1. A cluster with no previously assigned members becomes a new person.
//  2. A cluster touching exactly one existing person merges its new members
//     into that person; person IDs never change.
//  3. A cluster spanning two or more existing persons is recorded as a merge
//     conflict and left alone; its unassigned members stay unassigned.
//
// A face labeled noise keeps whatever membership it already had; noise never
// revokes identity. The whole write-back runs in one transaction, so a failed
// run leaves the previous state intact.
func (r *Registry) Reconcile(ctx context.Context, runID string, clusters []Cluster, noiseFaces int) (Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := Report{
		RunID:          runID,
		ClustersFormed: len(clusters),
		NoiseFaces:     noiseFaces,
	}
	for _, c := range clusters {
		report.FacesProcessed += len(c.Members)
	}
	report.FacesProcessed += noiseFaces

	ordered := append([]Cluster(nil), clusters...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].TempID < ordered[j].TempID })

	err := r.store.Transact(ctx, func(tx Tx) error {
		touched := make(map[uint]bool)

		for _, c := range ordered {
			priors := priorPersonIDs(c.Members)
			newFaces := unassignedFaceIDs(c.Members)

			switch len(priors) {
			case 0:
				person := &models.Person{}
				if err := tx.CreatePerson(person); err != nil {
					return fmt.Errorf("failed to create person for cluster %d: %w", c.TempID, err)
				}
				if err := tx.AssignFaces(newFaces, person.ID); err != nil {
					return fmt.Errorf("failed to assign faces to person %d: %w", person.ID, err)
				}
				touched[person.ID] = true
				report.PersonsCreated++

			case 1:
				personID := priors[0]
				if len(newFaces) == 0 {
					continue
				}
				if err := tx.AssignFaces(newFaces, personID); err != nil {
					return fmt.Errorf("failed to merge faces into person %d: %w", personID, err)
				}
				touched[personID] = true
				report.PersonsMerged++

			default:
				conflict := &models.MergeConflict{
					RunID:         runID,
					ClusterTempID: c.TempID,
					CreatedAt:     time.Now().Unix(),
					UpdatedAt:     time.Now().Unix(),
				}
				if err := conflict.SetPersonIDs(priors); err != nil {
					return err
				}
				if err := tx.RecordConflict(conflict); err != nil {
					return fmt.Errorf("failed to record merge conflict for cluster %d: %w", c.TempID, err)
				}
				report.Conflicts = append(report.Conflicts, Conflict{
					ClusterTempID: c.TempID,
					PersonIDs:     priors,
				})
				log.Printf("identity: cluster %d spans persons %v, recorded merge conflict", c.TempID, priors)
			}
		}

		return refreshDerived(tx, touched)
	})
	if err != nil {
		return Report{}, err
	}

	log.Printf("identity: run %s reconciled %d clusters (%d created, %d merged, %d conflicts)",
		runID, report.ClustersFormed, report.PersonsCreated, report.PersonsMerged, len(report.Conflicts))
	return report, nil
}

// refreshDerived recomputes representative face, face count and photo links
// for every person whose membership changed.
func refreshDerived(tx Tx, touched map[uint]bool) error {
	ids := make([]uint, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, personID := range ids {
		faces, err := tx.FacesOfPerson(personID)
		if err != nil {
			return fmt.Errorf("failed to load faces of person %d: %w", personID, err)
		}

		repID := representativeOf(faces)
		if err := tx.UpdatePersonDerived(personID, repID, len(faces)); err != nil {
			return fmt.Errorf("failed to update person %d: %w", personID, err)
		}

		photoIDs := distinctPhotoIDs(faces)
		if err := tx.ReplacePhotoLinks(personID, photoIDs); err != nil {
			return fmt.Errorf("failed to rebuild photo links of person %d: %w", personID, err)
		}
	}
	return nil
}

// representativeOf picks the member with the highest quality score, ties
// broken by the lowest face ID. Returns nil for an empty membership.
func representativeOf(faces []models.Face) *uint {
	if len(faces) == 0 {
		return nil
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.QualityScore > best.QualityScore {
			best = f
		} else if f.QualityScore == best.QualityScore && f.ID < best.ID {
			best = f
		}
	}
	id := best.ID
	return &id
}

func distinctPhotoIDs(faces []models.Face) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range faces {
		if !seen[f.PhotoID] {
			seen[f.PhotoID] = true
			out = append(out, f.PhotoID)
		}
	}
	sort.Strings(out)
	return out
}

func priorPersonIDs(members []Member) []uint {
	seen := make(map[uint]bool)
	var out []uint
	for _, m := range members {
		if m.PriorPersonID != nil && !seen[*m.PriorPersonID] {
			seen[*m.PriorPersonID] = true
			out = append(out, *m.PriorPersonID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func unassignedFaceIDs(members []Member) []uint {
	var out []uint
	for _, m := range members {
		if m.PriorPersonID == nil {
			out = append(out, m.FaceID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
