package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/photonest/photonestbackend/cluster"
	"github.com/photonest/photonestbackend/identity"
	"github.com/photonest/photonestbackend/media"
	"github.com/photonest/photonestbackend/models"
	"github.com/photonest/photonestbackend/observability"
	"github.com/photonest/photonestbackend/realtime"
	"github.com/photonest/photonestbackend/repository"
	"github.com/photonest/photonestbackend/vision"
	"github.com/photonest/photonestbackend/workers"
)

// ErrRunInProgress is returned when a run is requested while another is
// active.
var ErrRunInProgress = errors.New("a processing run is already in progress")

// RunReport summarizes one full processing run.
type RunReport struct {
	RunID               string              `json:"run_id"`
	StartedAt           int64               `json:"started_at"`
	FinishedAt          int64               `json:"finished_at"`
	PhotosAnalyzed      int                 `json:"photos_analyzed"`
	PhotosFailed        int                 `json:"photos_failed"`
	FacesProcessed      int                 `json:"faces_processed"`
	FacesRejected       int                 `json:"faces_rejected"`
	ClustersFormed      int                 `json:"clusters_formed"`
	NoiseFaces          int                 `json:"noise_faces"`
	PersonsCreated      int                 `json:"persons_created"`
	PersonsMerged       int                 `json:"persons_merged"`
	Conflicts           []identity.Conflict `json:"conflicts,omitempty"`
	ThumbnailsGenerated int                 `json:"thumbnails_generated"`
	Error               string              `json:"error,omitempty"`
}

// Runner orchestrates a processing run: concurrent vision analysis first,
// then the strictly serialized cluster/reconcile/thumbnail phase.
type Runner struct {
	photos     repository.PhotoRepositoryInterface
	faces      repository.FaceRepositoryInterface
	embeddings repository.FaceEmbeddingRepositoryInterface
	persons    repository.PersonRepositoryInterface
	conflicts  repository.ConflictRepositoryInterface
	registry   *identity.Registry
	engine     *cluster.Engine
	selector   *cluster.Selector
	processor  *media.Processor
	analysis   *workers.AnalysisProcessor
	hub        *realtime.Hub

	mu         sync.Mutex // one run at a time
	running    bool
	lastMu     sync.RWMutex
	lastReport *RunReport
}

// NewRunner wires a runner from its collaborators.
func NewRunner(
	photos repository.PhotoRepositoryInterface,
	faces repository.FaceRepositoryInterface,
	embeddings repository.FaceEmbeddingRepositoryInterface,
	persons repository.PersonRepositoryInterface,
	conflicts repository.ConflictRepositoryInterface,
	registry *identity.Registry,
	engine *cluster.Engine,
	selector *cluster.Selector,
	processor *media.Processor,
	analysis *workers.AnalysisProcessor,
	hub *realtime.Hub,
) *Runner {
	return &Runner{
		photos:     photos,
		faces:      faces,
		embeddings: embeddings,
		persons:    persons,
		conflicts:  conflicts,
		registry:   registry,
		engine:     engine,
		selector:   selector,
		processor:  processor,
		analysis:   analysis,
		hub:        hub,
	}
}

// Running reports whether a run is currently active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// LastReport returns the most recent run's report, or nil.
func (r *Runner) LastReport() *RunReport {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	return r.lastReport
}

// Run executes one full processing run and returns its report. A second
// concurrent call fails with ErrRunInProgress instead of queueing.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().Unix(),
	}
	r.broadcast(realtime.Event{Type: realtime.EventRunStarted, RunID: report.RunID})
	log.Printf("pipeline: run %s started", report.RunID)

	if err := r.analyzePhase(ctx, report); err != nil {
		return r.finish(report, err)
	}

	start := time.Now()
	if err := r.clusterPhase(ctx, report); err != nil {
		return r.finish(report, err)
	}
	observability.RunDuration.WithLabelValues("cluster").Observe(time.Since(start).Seconds())

	report.ThumbnailsGenerated = r.thumbnailPhase(report.RunID)
	return r.finish(report, nil)
}

func (r *Runner) finish(report *RunReport, err error) (*RunReport, error) {
	report.FinishedAt = time.Now().Unix()
	if err != nil {
		report.Error = err.Error()
		r.broadcast(realtime.Event{Type: realtime.EventRunFailed, RunID: report.RunID, Error: err.Error()})
		log.Printf("pipeline: run %s failed: %v", report.RunID, err)
	} else {
		r.broadcast(realtime.Event{Type: realtime.EventRunCompleted, RunID: report.RunID, Extra: map[string]interface{}{
			"clusters":  report.ClustersFormed,
			"created":   report.PersonsCreated,
			"merged":    report.PersonsMerged,
			"conflicts": len(report.Conflicts),
		}})
		log.Printf("pipeline: run %s completed: %d clusters, %d created, %d merged, %d conflicts",
			report.RunID, report.ClustersFormed, report.PersonsCreated, report.PersonsMerged, len(report.Conflicts))
	}

	r.lastMu.Lock()
	r.lastReport = report
	r.lastMu.Unlock()
	return report, err
}

// analyzePhase pushes every unanalyzed photo through the worker pool and
// waits for all of them. Individual failures are recorded per photo; only an
// empty queue or a listing error stops the run.
func (r *Runner) analyzePhase(ctx context.Context, report *RunReport) error {
	pending, err := r.photos.ListUnanalyzed()
	if err != nil {
		return fmt.Errorf("failed to list unanalyzed photos: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	results := make(chan workers.AnalysisOutcome, len(pending))
	go func() {
		for _, photo := range pending {
			r.analysis.Submit(workers.AnalysisJob{
				RunID:       report.RunID,
				PhotoID:     photo.ID,
				StoragePath: photo.Path,
				Result:      results,
			})
		}
	}()

	// the clustering phase must not start until every analysis completed or
	// failed
	for i := 0; i < len(pending); i++ {
		select {
		case outcome := <-results:
			if outcome.Err != nil {
				report.PhotosFailed++
			} else {
				report.PhotosAnalyzed++
			}
			report.FacesRejected += outcome.FacesRejected
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// clusterPhase assembles the full embedding batch, clusters it, and
// reconciles the labels against the person registry.
func (r *Runner) clusterPhase(ctx context.Context, report *RunReport) error {
	r.broadcast(realtime.Event{Type: realtime.EventClustering, RunID: report.RunID})

	stored, err := r.embeddings.ListAll()
	if err != nil {
		return fmt.Errorf("failed to load embeddings: %w", err)
	}
	faces, err := r.faces.ListAll()
	if err != nil {
		return fmt.Errorf("failed to load faces: %w", err)
	}
	faceByID := make(map[uint]*models.Face, len(faces))
	for i := range faces {
		faceByID[faces[i].ID] = &faces[i]
	}

	// batch assembly; malformed records are rejected per face, never the
	// whole batch
	var members []identity.Member
	var batch [][]float32
	for i := range stored {
		face, ok := faceByID[stored[i].FaceID]
		if !ok {
			continue
		}
		vec := stored[i].GetEmbedding()
		if len(vec) != vision.EmbeddingDim {
			log.Printf("pipeline: skipping face %d: embedding has %d dimensions", stored[i].FaceID, len(vec))
			report.FacesRejected++
			continue
		}
		members = append(members, identity.Member{
			FaceID:        face.ID,
			PhotoID:       face.PhotoID,
			QualityScore:  face.QualityScore,
			PriorPersonID: face.PersonID,
		})
		batch = append(batch, vec)
	}
	report.FacesProcessed = len(members)

	labels, err := r.engine.Cluster(batch)
	if err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}

	grouped := make(map[int][]identity.Member)
	noise := 0
	for i, label := range labels {
		if label == cluster.Noise {
			noise++
			continue
		}
		grouped[label] = append(grouped[label], members[i])
	}

	clusters := make([]identity.Cluster, 0, len(grouped))
	for label, ms := range grouped {
		clusters = append(clusters, identity.Cluster{TempID: label, Members: ms})
	}

	idReport, err := r.registry.Reconcile(ctx, report.RunID, clusters, noise)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	report.ClustersFormed = idReport.ClustersFormed
	report.NoiseFaces = idReport.NoiseFaces
	report.PersonsCreated = idReport.PersonsCreated
	report.PersonsMerged = idReport.PersonsMerged
	report.Conflicts = idReport.Conflicts

	observability.ClustersFormed.Set(float64(report.ClustersFormed))
	observability.NoiseFaces.Set(float64(report.NoiseFaces))
	if persons, err := r.persons.ListAll(); err == nil {
		observability.PersonsTotal.Set(float64(len(persons)))
	}
	if open, err := r.conflicts.ListOpen(); err == nil {
		observability.MergeConflictsOpen.Set(float64(len(open)))
	}

	r.broadcast(realtime.Event{Type: realtime.EventReconciled, RunID: report.RunID, Extra: map[string]interface{}{
		"clusters": report.ClustersFormed,
		"noise":    report.NoiseFaces,
	}})
	return nil
}

// thumbnailPhase regenerates the representative thumbnail of every person
// that has members. Thumbnail failures are logged, never fatal to the run.
func (r *Runner) thumbnailPhase(runID string) int {
	persons, err := r.persons.ListAll()
	if err != nil {
		log.Printf("pipeline: failed to list persons for thumbnails: %v", err)
		return 0
	}

	generated := 0
	for i := range persons {
		person := &persons[i]
		if person.RepresentativeFaceID == nil {
			continue
		}
		if err := r.generateThumbnail(person); err != nil {
			log.Printf("pipeline: thumbnail for person %d failed: %v", person.ID, err)
			continue
		}
		generated++
	}
	log.Printf("pipeline: run %s generated %d person thumbnails", runID, generated)
	return generated
}

func (r *Runner) generateThumbnail(person *models.Person) error {
	faces, err := r.faces.ListByPersonID(person.ID)
	if err != nil {
		return err
	}

	members := make([]cluster.Member, 0, len(faces))
	for _, f := range faces {
		members = append(members, cluster.Member{
			FaceID:       f.ID,
			PhotoID:      f.PhotoID,
			QualityScore: f.QualityScore,
			Box:          cluster.Box{Top: f.Top, Right: f.Right, Bottom: f.Bottom, Left: f.Left},
		})
	}
	sel, ok := r.selector.Select(members)
	if !ok {
		return fmt.Errorf("person %d has no member faces", person.ID)
	}

	photo, err := r.photos.GetByID(sel.Representative.PhotoID)
	if err != nil {
		return fmt.Errorf("failed to load photo %s: %w", sel.Representative.PhotoID, err)
	}
	img, err := r.processor.LoadImage(photo.Path)
	if err != nil {
		return err
	}

	thumbPath, err := r.processor.GenerateFaceThumbnail(img, sel.Directive)
	if err != nil {
		return err
	}
	return r.persons.UpdateThumbnailPath(person.ID, &thumbPath)
}

func (r *Runner) broadcast(event realtime.Event) {
	if r.hub != nil {
		r.hub.Broadcast(event)
	}
}
