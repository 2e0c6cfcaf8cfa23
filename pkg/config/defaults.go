package config

// Index defaults.
const (
	DefaultEstimatedLineHeight = 12.0
	DefaultCheckInvariants     = false
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = FormatText
)

// Telemetry defaults.
const (
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = false
	DefaultSampleRatio  = 0.0
	DefaultMetricsAddr  = ""
)

// Bench defaults.
const (
	DefaultBenchOperations = 10000
	DefaultBenchSeed       = 1
	DefaultBenchMaxInsert  = 64
	DefaultBenchLines      = 2000
)
