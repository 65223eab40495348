package domain

// Image is a transient image value. Base64 never carries a data URL header;
// headers are attached at the boundaries only.
type Image struct {
	MIME   string
	Base64 string
}

// IsZero reports whether the image has no payload.
func (i Image) IsZero() bool {
	return i.Base64 == ""
}
