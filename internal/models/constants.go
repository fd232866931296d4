package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	PaymentPaid    = "paid"
	PaymentPending = "pending"
)

const (
	PackageChat  = "chat"
	PackageVoice = "voice"
	PackageVideo = "video"
)

const (
	TypeLaw    = "LAW"
	TypeScheme = "SCHEME"
)

// CategoryAll disables category filtering.
const CategoryAll = "all"

const (
	CategoryTenantHousing = "tenant-housing"
	CategoryLandProperty  = "land-property"
	CategoryConsumer      = "consumer"
	CategoryCitizenRights = "citizen-rights"
	CategoryLabour        = "labour"
	CategoryFarmer        = "farmer"
	CategoryFamily        = "family"
	CategoryOther         = "other"
)

// Categories lists the fixed category set in display order.
var Categories = []string{
	CategoryTenantHousing,
	CategoryLandProperty,
	CategoryConsumer,
	CategoryCitizenRights,
	CategoryLabour,
	CategoryFarmer,
	CategoryFamily,
	CategoryOther,
}

const (
	// DefaultRelatedLimit number of related laws shown on a detail page
	DefaultRelatedLimit = 3

	// DefaultFlagTTL lifetime of a stored flag in seconds, 0 means no expiry
	DefaultFlagTTL = 0

	// RateLimitMessages chat messages allowed per window
	RateLimitMessages = 20

	// RateLimitWindow chat rate limit window in seconds
	RateLimitWindow = 60

	// WorkerQueueSize in-memory sync queue size
	WorkerQueueSize = 128

	// BackendCacheTTL lifetime of cached backend GET responses in seconds
	BackendCacheTTL = 30
)

func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func IsValidPackageType(t string) bool {
	switch t {
	case PackageChat, PackageVoice, PackageVideo:
		return true
	}
	return false
}

func IsValidPaymentStatus(s string) bool {
	return s == PaymentPaid || s == PaymentPending
}

func IsValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
