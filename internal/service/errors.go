package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/parking-slot-reservation/internal/lock"
)

// Error classes.  Every error returned by BookingService matches exactly
// one of them with errors.Is, or is an unexpected store failure.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrCapacityExceeded = errors.New("lot is full for the requested window")
	ErrStateConflict    = errors.New("state conflict")
	ErrLockTimeout      = lock.ErrTimeout
)

// Specific errors, each wrapping its class.
var (
	ErrInvalidWindow        = fmt.Errorf("%w: start must be in the future and before end", ErrValidation)
	ErrPlateRequired        = fmt.Errorf("%w: vehicle plate is required", ErrValidation)
	ErrInvalidLot           = fmt.Errorf("%w: lot needs a name, at least one slot and a non-negative price", ErrValidation)
	ErrLotNotFound          = fmt.Errorf("%w: lot", ErrNotFound)
	ErrReservationNotFound  = fmt.Errorf("%w: reservation", ErrNotFound)
	ErrNoMatch              = fmt.Errorf("%w: no matching reservation for plate", ErrNotFound)
	ErrAutoApprovalConflict = fmt.Errorf("%w: lot approves reservations automatically", ErrStateConflict)
	ErrVehicleInside        = fmt.Errorf("%w: vehicle is inside the lot", ErrStateConflict)
	ErrConcurrentUpdate     = fmt.Errorf("%w: reservation changed concurrently, retry", ErrStateConflict)
)
