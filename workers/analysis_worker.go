package workers

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/photonest/photonestbackend/index"
	"github.com/photonest/photonestbackend/media"
	"github.com/photonest/photonestbackend/models"
	"github.com/photonest/photonestbackend/observability"
	"github.com/photonest/photonestbackend/realtime"
	"github.com/photonest/photonestbackend/repository"
	"github.com/photonest/photonestbackend/utils"
	"github.com/photonest/photonestbackend/vision"
)

// AnalysisJob is one photo waiting for vision analysis.
type AnalysisJob struct {
	RunID   string
	PhotoID string
	// StoragePath is the photo's relative path within the media store
	StoragePath string
	// Result receives the outcome; nil means fire-and-forget
	Result chan<- AnalysisOutcome
}

// AnalysisOutcome reports what one analysis job produced.
type AnalysisOutcome struct {
	PhotoID       string
	FacesStored   int
	FacesRejected int
	Err           error
}

// AnalysisProcessor runs vision analysis jobs on a fixed pool of workers. One
// photo's failure is recorded on the photo and never aborts the others.
type AnalysisProcessor struct {
	JobQueue chan AnalysisJob
	Wg       sync.WaitGroup
	StopChan chan struct{}

	analyzer   *vision.Client
	store      media.Store
	photos     repository.PhotoRepositoryInterface
	faces      repository.FaceRepositoryInterface
	embeddings repository.FaceEmbeddingRepositoryInterface
	mirror     *repository.EmbeddingMirror // optional pgvector copy
	faceIndex  *index.FaceIndex            // optional similarity index
	hub        *realtime.Hub               // optional event fanout
}

// NewAnalysisProcessor starts the worker pool.
func NewAnalysisProcessor(
	analyzer *vision.Client,
	store media.Store,
	photos repository.PhotoRepositoryInterface,
	faces repository.FaceRepositoryInterface,
	embeddings repository.FaceEmbeddingRepositoryInterface,
	mirror *repository.EmbeddingMirror,
	faceIndex *index.FaceIndex,
	hub *realtime.Hub,
	queueSize, numWorkers int,
) *AnalysisProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	proc := &AnalysisProcessor{
		JobQueue:   make(chan AnalysisJob, queueSize),
		StopChan:   make(chan struct{}),
		analyzer:   analyzer,
		store:      store,
		photos:     photos,
		faces:      faces,
		embeddings: embeddings,
		mirror:     mirror,
		faceIndex:  faceIndex,
		hub:        hub,
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Printf("Started %d analysis worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

// Submit queues a job, blocking while the queue is full.
func (ap *AnalysisProcessor) Submit(job AnalysisJob) {
	ap.JobQueue <- job
	observability.AnalysisQueueDepth.Set(float64(len(ap.JobQueue)))
}

// Enqueue submits a job; returns false when the queue is full.
func (ap *AnalysisProcessor) Enqueue(job AnalysisJob) bool {
	select {
	case ap.JobQueue <- job:
		observability.AnalysisQueueDepth.Set(float64(len(ap.JobQueue)))
		return true
	default:
		return false
	}
}

// Stop signals the workers and waits for them to drain.
func (ap *AnalysisProcessor) Stop() {
	close(ap.StopChan)
	ap.Wg.Wait()
}

func (ap *AnalysisProcessor) worker(id int) {
	defer ap.Wg.Done()

	log.Printf("Analysis worker %d started", id)
	for {
		select {
		case job, ok := <-ap.JobQueue:
			if !ok {
				log.Printf("Analysis worker %d stopping: Job queue closed", id)
				return
			}
			observability.AnalysisQueueDepth.Set(float64(len(ap.JobQueue)))

			outcome := ap.processJob(job)
			if outcome.Err != nil {
				log.Printf("Worker %d: analysis failed for photo %s: %v", id, job.PhotoID, outcome.Err)
			}
			if job.Result != nil {
				job.Result <- outcome
			}

		case <-ap.StopChan:
			log.Printf("Analysis worker %d stopping: Stop signal received", id)
			return
		}
	}
}

// processJob runs EXIF extraction and vision analysis for one photo and
// persists everything it learns.
func (ap *AnalysisProcessor) processJob(job AnalysisJob) AnalysisOutcome {
	outcome := AnalysisOutcome{PhotoID: job.PhotoID}
	start := time.Now()

	photo, err := ap.photos.GetByID(job.PhotoID)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to load photo %s: %w", job.PhotoID, err)
		return outcome
	}

	// stage the image locally so EXIF parsing and the analyzer upload both
	// work regardless of the storage backend
	localPath, cleanup, err := ap.stage(job.StoragePath)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	defer cleanup()

	meta, err := utils.GetImageMetadata(localPath)
	if err != nil {
		log.Printf("Worker: metadata extraction failed for %s: %v", job.PhotoID, err)
		meta = &utils.Metadata{}
	}
	photo.CameraMake = meta.CameraMake
	photo.CameraModel = meta.CameraModel
	photo.TakenAt = meta.TakenAt
	photo.GPSLatitude = meta.GPSLatitude
	photo.GPSLongitude = meta.GPSLongitude
	photo.Width = meta.Width
	photo.Height = meta.Height
	photo.Season, photo.TimeOfDay = utils.TemporalContext(meta.TakenAt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	analysis, err := ap.analyzer.AnalyzeFile(ctx, localPath)
	if err != nil {
		observability.PhotosAnalyzed.WithLabelValues("failed").Inc()
		if dbErr := ap.photos.SetAnalysisResult(job.PhotoID, time.Now().Unix(), err); dbErr != nil {
			log.Printf("Worker: failed to record analysis error for %s: %v", job.PhotoID, dbErr)
		}
		ap.broadcast(job, "failed", err)
		outcome.Err = err
		return outcome
	}

	if analysis.Scene != nil {
		photo.SceneType = analysis.Scene.SceneType
		photo.LocationType = analysis.Scene.LocationType
	}
	photo.Caption = analysis.Caption
	photo.DominantEmotion = analysis.DominantEmotion
	photo.MoodScore = analysis.MoodScore
	photo.ClipEmbedding = models.EncodeVector(analysis.ClipEmbedding)

	if err := ap.photos.UpdateMetadata(photo); err != nil {
		outcome.Err = fmt.Errorf("failed to store metadata for photo %s: %w", job.PhotoID, err)
		return outcome
	}

	if len(analysis.Objects) > 0 {
		objects := make([]models.DetectedObject, 0, len(analysis.Objects))
		for _, obj := range analysis.Objects {
			objects = append(objects, models.DetectedObject{
				Label:      obj.Label,
				Confidence: obj.Confidence,
				X1:         int(obj.X1),
				Y1:         int(obj.Y1),
				X2:         int(obj.X2),
				Y2:         int(obj.Y2),
			})
		}
		if err := ap.photos.ReplaceObjects(job.PhotoID, objects); err != nil {
			log.Printf("Worker: failed to store objects for photo %s: %v", job.PhotoID, err)
		}
	}

	stored, rejected := ap.storeFaces(ctx, job.PhotoID, analysis.Faces)
	outcome.FacesStored = stored
	outcome.FacesRejected = rejected

	if err := ap.photos.SetAnalysisResult(job.PhotoID, time.Now().Unix(), nil); err != nil {
		outcome.Err = fmt.Errorf("failed to mark photo %s analyzed: %w", job.PhotoID, err)
		return outcome
	}

	observability.PhotosAnalyzed.WithLabelValues("ok").Inc()
	observability.RunDuration.WithLabelValues("analysis").Observe(time.Since(start).Seconds())
	ap.broadcast(job, "ok", nil)
	return outcome
}

// stage copies an asset from the store into a temp file and returns its path
// with a cleanup function.
func (ap *AnalysisProcessor) stage(storagePath string) (string, func(), error) {
	reader, _, err := ap.store.Get(storagePath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch %s from store: %w", storagePath, err)
	}
	defer reader.Close()

	tmp, err := os.CreateTemp("", "photonest-analysis-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to stage %s: %w", storagePath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to finalize staging of %s: %w", storagePath, err)
	}
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

// storeFaces persists valid detections and their embeddings. A malformed
// detection is rejected on its own; the rest of the photo still lands.
func (ap *AnalysisProcessor) storeFaces(ctx context.Context, photoID string, detections []vision.FaceDetection) (stored, rejected int) {
	for i := range detections {
		det := &detections[i]
		if err := det.Validate(); err != nil {
			log.Printf("Worker: rejecting face %d of photo %s: %v", i, photoID, err)
			observability.FacesRejected.Inc()
			rejected++
			continue
		}

		face := &models.Face{
			PhotoID:             photoID,
			Top:                 det.Box.Top,
			Right:               det.Box.Right,
			Bottom:              det.Box.Bottom,
			Left:                det.Box.Left,
			QualityScore:        det.Quality,
			DetectionConfidence: det.Confidence,
			EmotionStatus:       det.EmotionStatus,
		}
		if det.EmotionStatus == "ok" && det.Emotion != nil {
			face.EmotionLabel = &det.Emotion.Label
			face.EmotionConfidence = &det.Emotion.Confidence
			face.EmotionValence = &det.Emotion.Valence
		}
		if err := ap.faces.Create(face); err != nil {
			log.Printf("Worker: failed to store face for photo %s: %v", photoID, err)
			rejected++
			continue
		}

		embedding := &models.FaceEmbedding{
			FaceID:         face.ID,
			PhotoID:        photoID,
			EmbeddingModel: models.DefaultEmbeddingModel,
			QualityScore:   det.Quality,
		}
		embedding.SetEmbedding(det.Embedding)
		if err := ap.embeddings.Create(embedding); err != nil {
			log.Printf("Worker: failed to store embedding for face %d: %v", face.ID, err)
			rejected++
			continue
		}

		if ap.mirror != nil {
			err := ap.mirror.Save(ctx, repository.MirroredEmbedding{
				FaceID:    face.ID,
				PhotoID:   photoID,
				Embedding: det.Embedding,
				Model:     embedding.EmbeddingModel,
				Dim:       len(det.Embedding),
			})
			if err != nil {
				// the mirror is a convenience copy; SQLite stays authoritative
				log.Printf("Worker: failed to mirror embedding for face %d: %v", face.ID, err)
			}
		}
		if ap.faceIndex != nil {
			ap.faceIndex.Add(index.Entry{FaceID: face.ID, PhotoID: photoID, Embedding: det.Embedding})
		}

		observability.FacesDetected.Inc()
		stored++
	}
	return stored, rejected
}

func (ap *AnalysisProcessor) broadcast(job AnalysisJob, status string, err error) {
	if ap.hub == nil {
		return
	}
	event := realtime.Event{
		Type:    realtime.EventPhotoDone,
		RunID:   job.RunID,
		PhotoID: job.PhotoID,
		Status:  status,
	}
	if err != nil {
		event.Error = err.Error()
	}
	ap.hub.Broadcast(event)
}
