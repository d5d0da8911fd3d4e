package parking

import "errors"

// Sentinel errors for parking operations. The API layer maps these to
// HTTP status codes: not-found errors to 404, transition conflicts to 409,
// ErrInvalidStatus to 400.
var (
	// ErrLotNotFound indicates the lot does not exist.
	ErrLotNotFound = errors.New("lot not found")

	// ErrNodeNotFound indicates the node does not exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoLots indicates no lots are configured at all.
	ErrNoLots = errors.New("no parking lots available")

	// ErrNotAvailable indicates a reserve attempt on a spot that is neither
	// AVAILABLE nor a lapsed reservation.
	ErrNotAvailable = errors.New("spot not available or still reserved")

	// ErrNotReserved indicates an occupy attempt on a spot that is not RESERVED.
	ErrNotReserved = errors.New("can only occupy a reserved spot")

	// ErrNotOccupied indicates a free attempt on a spot that is not OCCUPIED.
	ErrNotOccupied = errors.New("can only free an occupied spot")

	// ErrInvalidStatus indicates a status value outside the transition targets.
	ErrInvalidStatus = errors.New("invalid status")
)
