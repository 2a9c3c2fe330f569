package validation

const (
	// Card issuance
	MinCardHolderLength  = 2
	MaxCardHolderLength  = 100
	MinCardDurationYears = 1
	MaxCardDurationYears = 5

	// Password requirements
	MinPasswordLength = 8
	MaxPasswordLength = 72

	// String lengths
	MaxDescriptionLength = 255
)
