package repository

import (
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/photonest/photonestbackend/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Photo{},
		&models.Person{},
		&models.Face{},
		&models.FaceEmbedding{},
		&models.PhotoPerson{},
		&models.MergeConflict{},
		&models.DetectedObject{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedFace(t *testing.T, db *gorm.DB, photoID string, personID *uint, quality float64) models.Face {
	t.Helper()
	face := models.Face{
		PhotoID:       photoID,
		PersonID:      personID,
		Top:           10, Right: 60, Bottom: 60, Left: 10,
		QualityScore:  quality,
		EmotionStatus: models.EmotionStatusNone,
		CreatedAt:     1, UpdatedAt: 1,
	}
	if err := db.Create(&face).Error; err != nil {
		t.Fatalf("failed to seed face: %v", err)
	}
	emb := models.FaceEmbedding{
		FaceID:         face.ID,
		PhotoID:        photoID,
		EmbeddingModel: models.DefaultEmbeddingModel,
		QualityScore:   quality,
		CreatedAt:      1, UpdatedAt: 1,
	}
	emb.SetEmbedding(make([]float32, 128))
	if err := db.Create(&emb).Error; err != nil {
		t.Fatalf("failed to seed embedding: %v", err)
	}
	return face
}

func TestDeletePhotoCascades(t *testing.T) {
	db := newTestDB(t)
	repo := NewPhotoRepository(db)

	for _, id := range []string{"p1", "p2"} {
		photo := &models.Photo{ID: id, FileName: id + ".jpg", Path: "photos/" + id + ".jpg", Season: "unknown", TimeOfDay: "unknown"}
		if err := repo.Create(photo); err != nil {
			t.Fatalf("failed to seed photo: %v", err)
		}
	}

	person := models.Person{DisplayName: "Person 1", CreatedAt: 1, UpdatedAt: 1}
	if err := db.Create(&person).Error; err != nil {
		t.Fatalf("failed to seed person: %v", err)
	}

	// the better face lives in p1 and is the representative
	faceA := seedFace(t, db, "p1", &person.ID, 0.9)
	faceB := seedFace(t, db, "p2", &person.ID, 0.5)

	db.Create(&models.PhotoPerson{PhotoID: "p1", PersonID: person.ID, CreatedAt: 1})
	db.Create(&models.PhotoPerson{PhotoID: "p2", PersonID: person.ID, CreatedAt: 1})
	db.Create(&models.DetectedObject{PhotoID: "p1", Label: "cake", Confidence: 0.9, CreatedAt: 1})
	db.Model(&models.Person{}).Where("id = ?", person.ID).Updates(map[string]interface{}{
		"representative_face_id": faceA.ID,
		"face_count":             2,
	})

	if err := repo.Delete("p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Unscoped counts catch soft-delete leftovers
	counts := map[string]interface{}{
		"faces":      &models.Face{},
		"embeddings": &models.FaceEmbedding{},
		"objects":    &models.DetectedObject{},
	}
	for name, model := range counts {
		var got int64
		if err := db.Unscoped().Model(model).Where("photo_id = ?", "p1").Count(&got).Error; err != nil {
			t.Fatalf("failed to count %s: %v", name, err)
		}
		if got != 0 {
			t.Errorf("expected no %s rows for deleted photo, found %d", name, got)
		}
	}
	var photoCount int64
	if err := db.Unscoped().Model(&models.Photo{}).Where("id = ?", "p1").Count(&photoCount).Error; err != nil {
		t.Fatalf("failed to count photos: %v", err)
	}
	if photoCount != 0 {
		t.Errorf("expected photo row to be hard deleted, found %d", photoCount)
	}
	var linkCount int64
	db.Model(&models.PhotoPerson{}).Where("photo_id = ?", "p1").Count(&linkCount)
	if linkCount != 0 {
		t.Errorf("expected photo links to be removed, found %d", linkCount)
	}

	// the person survives on the remaining face, with derived fields moved
	var updated models.Person
	if err := db.First(&updated, person.ID).Error; err != nil {
		t.Fatalf("failed to reload person: %v", err)
	}
	if updated.FaceCount != 1 {
		t.Errorf("expected face count 1, got %d", updated.FaceCount)
	}
	if updated.RepresentativeFaceID == nil || *updated.RepresentativeFaceID != faceB.ID {
		t.Errorf("expected representative %d, got %v", faceB.ID, updated.RepresentativeFaceID)
	}
	var links []models.PhotoPerson
	db.Where("person_id = ?", person.ID).Find(&links)
	if len(links) != 1 || links[0].PhotoID != "p2" {
		t.Errorf("expected a single link to p2, got %+v", links)
	}

	// the surviving photo's face and embedding are untouched
	var remaining int64
	db.Model(&models.FaceEmbedding{}).Where("face_id = ?", faceB.ID).Count(&remaining)
	if remaining != 1 {
		t.Error("embedding of the surviving face was removed")
	}
}

func TestDeletePhotoMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewPhotoRepository(db)

	if err := repo.Delete("nope"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}
