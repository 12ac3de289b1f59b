package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorTransientContention is returned when a sequence counter row could not
// be locked within the storage layer's lock wait bound. The caller should
// retry the whole allocation; the allocator never hands out a value it is not
// sure about.
var ErrorTransientContention = errors.New("sequence row lock contention, retry")

// ErrorExhaustedRetries is returned when order number generation kept
// colliding on the unique index until the attempt budget ran out. This is
// fatal for the current request; no order was created.
var ErrorExhaustedRetries = errors.New("order number generation retries exhausted")
