package phyparam

import "errors"

// Configuration errors halt work and are returned to the caller (spec §7a).
var (
	ErrInvalidCodingRate  = errors.New("phyparam: invalid coding rate")
	ErrInvalidSF          = errors.New("phyparam: spreading factor out of range")
	ErrPPMExceedsSF       = errors.New("phyparam: PPM exceeds SF")
	ErrInvalidOversample  = errors.New("phyparam: oversampling out of range")
)
