package optimizer

// Request identifies one attempt of an optimize invocation.
type Request struct {
	// ResourceID names the file version (or local resume) to optimize.
	// It never changes between attempts of the same invocation.
	ResourceID string
	// InvocationID is shared by every attempt of one Submit call.
	InvocationID string
	// Attempt is the 0-based attempt index.
	Attempt int
}

// Result is the payload of a successful invocation.
type Result struct {
	OptimizedContent string    `json:"optimizedContent" yaml:"optimized_content"`
	Metadata         *Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	// Attempts is filled in by the client, never by the backend.
	Attempts int `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

type Metadata struct {
	RetryCount      int     `json:"retryCount,omitempty" yaml:"retry_count,omitempty"`
	ProcessingTime  float64 `json:"processingTime,omitempty" yaml:"processing_time,omitempty"`
	ChunksProcessed int     `json:"chunksProcessed,omitempty" yaml:"chunks_processed,omitempty"`
	TotalChunks     int     `json:"totalChunks,omitempty" yaml:"total_chunks,omitempty"`
}
