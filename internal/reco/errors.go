package reco

import "errors"

var (
	ErrInvalidLocator      = errors.New("invalid locator")
	ErrSourceFetch         = errors.New("source fetch failed")
	ErrEmptyPool           = errors.New("empty pool")
	ErrNoEligibleSource    = errors.New("no eligible source")
	ErrInvalidScheduleSpec = errors.New("invalid schedule spec")
	ErrDeliveryFailure     = errors.New("delivery failed on every endpoint")
)
