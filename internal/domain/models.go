package domain

// ModelOption describes one downloadable speech-recognition model preset.
type ModelOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FileName    string `json:"fileName"`
	URL         string `json:"url"`
	SizeLabel   string `json:"sizeLabel,omitempty"`
	Description string `json:"description,omitempty"`
	Downloaded  bool   `json:"downloaded"`
	LocalPath   string `json:"localPath,omitempty"`
}

// DownloadProgress reports one step of a model download for UI display.
type DownloadProgress struct {
	ModelID  string  `json:"modelId"`
	Stage    string  `json:"stage"`
	Fraction float64 `json:"fraction"`
	Message  string  `json:"message"`
}
