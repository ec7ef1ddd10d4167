package domain

import "errors"

var (
	// ErrStoreUnavailable marks a catalog or subscription read failure. Fatal to a run.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrContactNotFound is returned by the directory when the subscriber no longer exists.
	ErrContactNotFound = errors.New("contact not found")
	// ErrContactUnconfirmed is returned when the subscriber has not confirmed their address.
	ErrContactUnconfirmed = errors.New("contact not confirmed")
	// ErrTransientSend is a delivery failure that may succeed on a later attempt.
	ErrTransientSend = errors.New("transient send failure")
	// ErrPermanentSend is a delivery failure that will not succeed without intervention.
	ErrPermanentSend = errors.New("permanent send failure")
	// ErrRunInProgress is returned when a trigger fires while another run is active.
	ErrRunInProgress = errors.New("run already in progress")
)
