package metrics

// Histogram bucket layout shared by the duration metrics: 1ms doubling up to ~32s
const (
	BucketStart1ms = 0.001
	BucketFactor2  = 2
	BucketCount16  = 16
)

// Status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
