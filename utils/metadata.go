package utils

import (
	"fmt"
	"image"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Metadata holds the EXIF-derived fields of a photo. All fields are optional;
// a photo without EXIF data still ingests.
type Metadata struct {
	Width        *int     `json:"width,omitempty"` // get from DecodeConfig usually
	Height       *int     `json:"height,omitempty"`
	CameraMake   *string  `json:"camera_make,omitempty"`
	CameraModel  *string  `json:"camera_model,omitempty"`
	TakenAt      *int64   `json:"taken_at,omitempty"`
	GPSLatitude  *float64 `json:"gps_latitude,omitempty"`
	GPSLongitude *float64 `json:"gps_longitude,omitempty"`
}

// helper to safely get a string tag, trimming null terminators
func getString(exifData *exif.Exif, tagName exif.FieldName) *string {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	// val string might have null chars at the end
	val := strings.Trim(strings.TrimRight(tag.String(), "\x00"), "\"")
	if val == "" {
		return nil
	}
	return &val
}

// GetImageMetadata extracts relevant metadata using goexif
func GetImageMetadata(filePath string) (*Metadata, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("metadata: failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	config, _, err := image.DecodeConfig(file)
	var width, height *int
	if err == nil {
		w, h := config.Width, config.Height
		width = &w
		height = &h
	} else {
		log.Printf("metadata: Warning - Could not decode config for dimensions of %s: %v", filePath, err)
	}

	_, err = file.Seek(0, 0)
	if err != nil {
		return nil, fmt.Errorf("metadata: failed to seek file %s: %w", filePath, err)
	}

	exifData, err := exif.Decode(file)
	if err != nil {
		// not necessarily a fatal error, file might just lack EXIF data
		log.Printf("metadata: No EXIF data found or error decoding EXIF for %s: %v", filePath, err)
		// return metadata struct with only dimensions if they were found
		return &Metadata{Width: width, Height: height}, nil
	}

	meta := &Metadata{
		Width:       width,
		Height:      height,
		CameraMake:  getString(exifData, exif.Make),
		CameraModel: getString(exifData, exif.Model),
	}

	dt, err := exifData.DateTime()
	if err == nil {
		ts := dt.Unix()
		meta.TakenAt = &ts
	} else {
		log.Printf("metadata: Could not read DateTimeOriginal for %s: %v", filePath, err)
	}

	lat, long, err := exifData.LatLong()
	if err == nil {
		meta.GPSLatitude = &lat
		meta.GPSLongitude = &long
	}

	return meta, nil
}

// SeasonOf maps a capture time to a season name.
func SeasonOf(t time.Time) string {
	switch t.Month() {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "autumn"
	}
}

// TimeOfDayOf maps a capture time to a coarse time-of-day bucket.
func TimeOfDayOf(t time.Time) string {
	hour := t.Hour()
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "night"
	}
}

// TemporalContext derives season and time of day from an optional capture
// timestamp. Missing EXIF time yields "unknown" for both, never a guess.
func TemporalContext(takenAt *int64) (season, timeOfDay string) {
	if takenAt == nil {
		return "unknown", "unknown"
	}
	t := time.Unix(*takenAt, 0)
	return SeasonOf(t), TimeOfDayOf(t)
}
