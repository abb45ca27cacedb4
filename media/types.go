package media

// AssetType names a category of stored asset, each kept in its own
// subdirectory or key prefix.
type AssetType string

const (
	AssetTypeOriginal  AssetType = "original"
	AssetTypeFaceThumb AssetType = "face_thumb"
	AssetTypeUnknown   AssetType = "unknown"
)
