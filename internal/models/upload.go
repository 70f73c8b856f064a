package models

// ImageData describes an image persisted in object storage. Placeholder is a
// tiny base64-encoded JPEG used for blur-up rendering while the full image
// loads.
type ImageData struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Placeholder string `gorm:"type:text" json:"placeholder"`
}

// AudioData describes a generated narration file persisted in object storage.
type AudioData struct {
	URL string `json:"url"`
	Key string `json:"key"`
}
