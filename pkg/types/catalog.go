package types

// CatalogFile describes one downloadable speed test payload.
type CatalogFile struct {
	// Short size label, also used as the payload id.
	// example: 100MB
	Size string `json:"size" example:"100MB"`
	// example: 100MB.bin
	Filename string `json:"filename" example:"100MB.bin"`
	// Exact payload size in bytes.
	// example: 104857600
	Bytes int64 `json:"bytes" example:"104857600"`
	// Absolute download URL.
	// example: http://lg.example.net/speedtest/100MB.bin
	URL string `json:"url" example:"http://lg.example.net/speedtest/100MB.bin"`
	// example: Download 100MB test file
	Description string `json:"description" example:"Download 100MB test file"`
}

// CatalogExamples holds command line examples for manual testing.
type CatalogExamples struct {
	Wget string `json:"wget"`
	Curl string `json:"curl"`
}

// CatalogInstructions accompanies the file list.
type CatalogInstructions struct {
	Usage    string          `json:"usage"`
	Examples CatalogExamples `json:"examples"`
}

// CatalogResponse is returned by GET /api/speedtest/files.
type CatalogResponse struct {
	Files        []CatalogFile       `json:"files"`
	Instructions CatalogInstructions `json:"instructions"`
}
