package cluster

import "image"

// ThumbnailDirective tells the external cropping collaborator which image
// region to turn into a person thumbnail. It is a pure decision value; all
// pixel work happens in the media layer.
type ThumbnailDirective struct {
	PhotoID    string
	FaceID     uint
	Box        Box
	Padding    int // symmetric padding in pixels, clamped to image bounds
	TargetSize int // canonical square output resolution
}

// CropRect returns the padded face region clamped to the source image
// dimensions. A box lying entirely outside the image yields an empty
// rectangle.
func (d ThumbnailDirective) CropRect(imgWidth, imgHeight int) image.Rectangle {
	top := d.Box.Top - d.Padding
	left := d.Box.Left - d.Padding
	bottom := d.Box.Bottom + d.Padding
	right := d.Box.Right + d.Padding

	if top < 0 {
		top = 0
	}
	if left < 0 {
		left = 0
	}
	if bottom > imgHeight {
		bottom = imgHeight
	}
	if right > imgWidth {
		right = imgWidth
	}

	if left >= right || top >= bottom {
		return image.Rectangle{}
	}
	return image.Rect(left, top, right, bottom)
}
