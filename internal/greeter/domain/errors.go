package domain

import (
	"fmt"
	"strconv"

	apperrors "github.com/louisbranch/greeting.space/internal/platform/errors"
)

var (
	// ErrNameEmpty indicates a greeting with a zero-length name.
	ErrNameEmpty = apperrors.New(apperrors.CodeGreetingNameEmpty, "greeting name is required")
	// ErrNameTooLong indicates a greeting name over the configured character limit.
	ErrNameTooLong = apperrors.New(apperrors.CodeGreetingNameTooLong, "greeting name exceeds the character limit")
	// ErrUnauthorized indicates a privileged operation by a non-admin caller.
	ErrUnauthorized = apperrors.New(apperrors.CodeGreetingUnauthorized, "caller is not the recorded admin")
	// ErrNotInitialized indicates a privileged operation before initialization.
	ErrNotInitialized = apperrors.New(apperrors.CodeGreetingNotInitialized, "contract admin has not been initialized")
	// ErrAlreadyInitialized indicates a repeated initialization attempt.
	ErrAlreadyInitialized = apperrors.New(apperrors.CodeGreetingAlreadyInitialized, "contract admin is already initialized")
)

// nameTooLongError builds an ErrNameTooLong with the offending sizes attached.
func nameTooLongError(length int, limit uint32) error {
	return apperrors.WithMetadata(
		apperrors.CodeGreetingNameTooLong,
		fmt.Sprintf("greeting name is %d bytes, limit is %d", length, limit),
		map[string]string{
			"Length": strconv.Itoa(length),
			"Limit":  strconv.FormatUint(uint64(limit), 10),
		},
	)
}
