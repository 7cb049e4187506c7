package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

const (
	// DateFormat is the calendar-date layout used everywhere dates cross
	// a boundary (storage, API, sheet rows).
	DateFormat = "2006-01-02"

	// TimeFormat is the HH:MM layout of session start/end times.
	TimeFormat = "15:04"
)

const (
	// PlayerIDPrefix prefixes generated player codes and payment references.
	PlayerIDPrefix = "MB"

	// PlayerIDSuffixLen is the number of random characters after the prefix.
	PlayerIDSuffixLen = 3

	// NextSessionHorizonDays bounds the forward scan of the next-session
	// resolver. Nothing within two weeks means "no upcoming session".
	NextSessionHorizonDays = 14

	// AvailabilityCacheTTL is the freshness window of the availability
	// cache, in seconds. Short on purpose: it only smooths polling.
	AvailabilityCacheTTL = 5

	// DefaultTimezone is the club's civil timezone (no daylight saving).
	DefaultTimezone = "Australia/Brisbane"

	// WorkerQueueSize is the in-memory sheets queue capacity.
	WorkerQueueSize = 128
)
