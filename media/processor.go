package media

import (
	"fmt"
	"image"
	"io"
	"log"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/photonest/photonestbackend/cluster"
)

const (
	ThumbnailJpegQuality   = 90
	ThumbnailFileExtension = ".jpg"
)

// Processor turns thumbnail directives into stored image assets. It relies on
// a Store implementation for saving the results.
type Processor struct {
	store Store
}

// NewProcessor creates a processor writing through the given store.
func NewProcessor(store Store) *Processor {
	return &Processor{store: store}
}

// GenerateFaceThumbnail executes one thumbnail directive against the source
// image: the padded face region is cropped, scaled to a square of the
// directive's target size, and saved as JPEG. Returns the relative path of
// the stored thumbnail.
func (p *Processor) GenerateFaceThumbnail(originalImg image.Image, directive cluster.ThumbnailDirective) (string, error) {
	bounds := originalImg.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return "", fmt.Errorf("invalid original image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	rect := directive.CropRect(bounds.Dx(), bounds.Dy())
	if rect.Empty() {
		return "", fmt.Errorf("face region %+v is empty after clamping", directive.Box)
	}

	cropped := imaging.Crop(originalImg, rect)
	thumb := imaging.Fill(cropped, directive.TargetSize, directive.TargetSize, imaging.Center, imaging.Lanczos)

	reader, writer := io.Pipe()
	go func() {
		defer writer.Close()
		err := imaging.Encode(writer, thumb, imaging.JPEG, imaging.JPEGQuality(ThumbnailJpegQuality))
		if err != nil {
			log.Printf("processor: Failed to encode face thumbnail: %v", err)
			writer.CloseWithError(fmt.Errorf("thumbnail encoding failed: %w", err))
		}
	}()

	thumbUUID, err := uuid.NewRandom()
	if err != nil {
		reader.Close()
		return "", fmt.Errorf("failed to generate UUID for thumbnail: %w", err)
	}
	targetFilename := thumbUUID.String() + ThumbnailFileExtension

	savedRelPath, err := p.store.Save(AssetTypeFaceThumb, targetFilename, reader)
	if err != nil {
		return "", fmt.Errorf("failed to save face thumbnail via store: %w", err)
	}

	log.Printf("processor: Generated face thumbnail for photo %s face %d at %s",
		directive.PhotoID, directive.FaceID, savedRelPath)
	return savedRelPath, nil
}

// LoadImage opens and decodes an asset from the store.
func (p *Processor) LoadImage(relativePath string) (image.Image, error) {
	reader, _, err := p.store.Get(relativePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	img, err := imaging.Decode(reader, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", relativePath, err)
	}
	return img, nil
}
