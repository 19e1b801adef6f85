package bacnet

import (
	"errors"
	"fmt"
)

// ErrorClass is the class half of an error response.
type ErrorClass uint8

const (
	ClassDevice        ErrorClass = 0
	ClassObject        ErrorClass = 1
	ClassProperty      ErrorClass = 2
	ClassResources     ErrorClass = 3
	ClassSecurity      ErrorClass = 4
	ClassServices      ErrorClass = 5
	ClassVT            ErrorClass = 6
	ClassCommunication ErrorClass = 7
)

// String returns the error class name.
func (c ErrorClass) String() string {
	switch c {
	case ClassDevice:
		return "device"
	case ClassObject:
		return "object"
	case ClassProperty:
		return "property"
	case ClassResources:
		return "resources"
	case ClassSecurity:
		return "security"
	case ClassServices:
		return "services"
	case ClassVT:
		return "vt"
	case ClassCommunication:
		return "communication"
	default:
		return fmt.Sprintf("class-%d", uint8(c))
	}
}

// ErrorCode is the code half of an error response.
type ErrorCode uint16

const (
	CodeOther                         ErrorCode = 0
	CodeDynamicCreationNotSupported   ErrorCode = 4
	CodeInvalidDataType               ErrorCode = 9
	CodeNoSpaceForObject              ErrorCode = 18
	CodeNoSpaceToAddListElement       ErrorCode = 19
	CodeObjectDeletionNotPermitted    ErrorCode = 23
	CodeServiceRequestDenied          ErrorCode = 29
	CodeUnknownObject                 ErrorCode = 31
	CodeUnknownProperty               ErrorCode = 32
	CodeUnsupportedObjectType         ErrorCode = 36
	CodeValueOutOfRange               ErrorCode = 37
	CodeWriteAccessDenied             ErrorCode = 40
	CodeInvalidArrayIndex             ErrorCode = 42
	CodeDuplicateName                 ErrorCode = 48
	CodeDuplicateObjectID             ErrorCode = 49
	CodePropertyIsNotAnArray          ErrorCode = 50
	CodeAbortBufferOverflow           ErrorCode = 51
	CodeAbortSegmentationNotSupported ErrorCode = 54
	CodeUnknownSubscription           ErrorCode = 79
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case CodeOther:
		return "other"
	case CodeDynamicCreationNotSupported:
		return "dynamic-creation-not-supported"
	case CodeInvalidDataType:
		return "invalid-data-type"
	case CodeNoSpaceForObject:
		return "no-space-for-object"
	case CodeNoSpaceToAddListElement:
		return "no-space-to-add-list-element"
	case CodeObjectDeletionNotPermitted:
		return "object-deletion-not-permitted"
	case CodeServiceRequestDenied:
		return "service-request-denied"
	case CodeUnknownObject:
		return "unknown-object"
	case CodeUnknownProperty:
		return "unknown-property"
	case CodeUnsupportedObjectType:
		return "unsupported-object-type"
	case CodeValueOutOfRange:
		return "value-out-of-range"
	case CodeWriteAccessDenied:
		return "write-access-denied"
	case CodeInvalidArrayIndex:
		return "invalid-array-index"
	case CodeDuplicateName:
		return "duplicate-name"
	case CodeDuplicateObjectID:
		return "duplicate-object-id"
	case CodePropertyIsNotAnArray:
		return "property-is-not-an-array"
	case CodeAbortBufferOverflow:
		return "abort-buffer-overflow"
	case CodeAbortSegmentationNotSupported:
		return "abort-segmentation-not-supported"
	case CodeUnknownSubscription:
		return "unknown-subscription"
	default:
		return fmt.Sprintf("code-%d", uint16(c))
	}
}

// Error is an (ErrorClass, ErrorCode) pair reported to a remote caller.
type Error struct {
	Class ErrorClass
	Code  ErrorCode
}

// NewError returns an error for the given class and code.
func NewError(class ErrorClass, code ErrorCode) *Error {
	return &Error{Class: class, Code: code}
}

func (e *Error) Error() string {
	return fmt.Sprintf("bacnet error %s/%s", e.Class, e.Code)
}

// Is matches another *Error with the same class and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// Sentinel errors for the property access protocol.
var (
	ErrUnknownObject                 = NewError(ClassObject, CodeUnknownObject)
	ErrUnknownProperty               = NewError(ClassProperty, CodeUnknownProperty)
	ErrWriteAccessDenied             = NewError(ClassProperty, CodeWriteAccessDenied)
	ErrValueOutOfRange               = NewError(ClassProperty, CodeValueOutOfRange)
	ErrPropertyIsNotAnArray          = NewError(ClassProperty, CodePropertyIsNotAnArray)
	ErrInvalidArrayIndex             = NewError(ClassProperty, CodeInvalidArrayIndex)
	ErrAbortSegmentationNotSupported = NewError(ClassProperty, CodeAbortSegmentationNotSupported)
	ErrInvalidDataType               = NewError(ClassProperty, CodeInvalidDataType)
	ErrDuplicateName                 = NewError(ClassProperty, CodeDuplicateName)
	ErrNoSpaceForObject              = NewError(ClassResources, CodeNoSpaceForObject)
	ErrNoSpaceToAddListElement       = NewError(ClassResources, CodeNoSpaceToAddListElement)
	ErrUnsupportedObjectType         = NewError(ClassObject, CodeUnsupportedObjectType)
	ErrUnknownSubscription           = NewError(ClassServices, CodeUnknownSubscription)
	ErrServiceRequestDenied          = NewError(ClassServices, CodeServiceRequestDenied)
	ErrDynamicCreationNotSupported   = NewError(ClassObject, CodeDynamicCreationNotSupported)
	ErrObjectDeletionNotPermitted    = NewError(ClassObject, CodeObjectDeletionNotPermitted)
)

// AsError extracts the class/code pair from err. Errors that are not
// *Error map to (device, other).
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	return NewError(ClassDevice, CodeOther)
}
