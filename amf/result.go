package amf

import (
	"fmt"
)

// Result is an AMF_RESULT code.
type Result int

const (
	ResultOK Result = iota
	ResultFail
	ResultUnexpected
	ResultAccessDenied
	ResultInvalidArg
	ResultOutOfRange
	ResultOutOfMemory
	ResultInvalidPointer
	ResultNoInterface
	ResultNotImplemented
	ResultNotSupported
	ResultNotFound
	ResultAlreadyInitialized
	ResultNotInitialized
	ResultInvalidFormat
	ResultWrongState
	ResultFileNotOpen
	ResultNoDevice
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "AMF_OK"
	case ResultFail:
		return "AMF_FAIL"
	case ResultUnexpected:
		return "AMF_UNEXPECTED"
	case ResultAccessDenied:
		return "AMF_ACCESS_DENIED"
	case ResultInvalidArg:
		return "AMF_INVALID_ARG"
	case ResultOutOfRange:
		return "AMF_OUT_OF_RANGE"
	case ResultOutOfMemory:
		return "AMF_OUT_OF_MEMORY"
	case ResultInvalidPointer:
		return "AMF_INVALID_POINTER"
	case ResultNoInterface:
		return "AMF_NO_INTERFACE"
	case ResultNotImplemented:
		return "AMF_NOT_IMPLEMENTED"
	case ResultNotSupported:
		return "AMF_NOT_SUPPORTED"
	case ResultNotFound:
		return "AMF_NOT_FOUND"
	case ResultAlreadyInitialized:
		return "AMF_ALREADY_INITIALIZED"
	case ResultNotInitialized:
		return "AMF_NOT_INITIALIZED"
	case ResultInvalidFormat:
		return "AMF_INVALID_FORMAT"
	case ResultWrongState:
		return "AMF_WRONG_STATE"
	case ResultFileNotOpen:
		return "AMF_FILE_NOT_OPEN"
	case ResultNoDevice:
		return "AMF_NO_DEVICE"
	default:
		return fmt.Sprintf("<unexpected_%d>", int(r))
	}
}

// Err returns nil for ResultOK and ErrResult otherwise.
func (r Result) Err(op string) error {
	if r == ResultOK {
		return nil
	}
	return ErrResult{Op: op, Result: r}
}

type ErrResult struct {
	Op     string
	Result Result
}

func (e ErrResult) Error() string {
	return fmt.Sprintf("%s returned %s", e.Op, e.Result)
}
