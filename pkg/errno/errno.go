package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// WithMessage 在保留错误码的前提下附加具体原因
func (e Errno) WithMessage(msg string) *Err {
	return &Err{Errno: e, Detail: msg}
}

// Err 是携带详细信息的 Errno，errors.Is 仍然按错误码匹配
type Err struct {
	Errno
	Detail string
}

func (e *Err) Error() string {
	if e.Detail == "" {
		return e.Message
	}
	return e.Message + ": " + e.Detail
}

func (e *Err) Unwrap() error {
	return e.Errno
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var detailed *Err
	if errors.As(err, &detailed) {
		return detailed.Code, detailed.Error()
	}
	var plain Errno
	if errors.As(err, &plain) {
		return plain.Code, err.Error()
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
)

// Fee Errors (30000+)
var (
	ErrValidation           = Errno{Code: 30001, Message: "Invalid fee input"}
	ErrPersistence          = Errno{Code: 30002, Message: "Custom fee default could not be saved"}
	ErrUnderfunded          = Errno{Code: 30003, Message: "Insufficient funds for gas * price + value"}
	ErrDraftNotFound        = Errno{Code: 30101, Message: "Transaction draft not found"}
	ErrDraftExists          = Errno{Code: 30102, Message: "Transaction draft already exists"}
	ErrEditSessionActive    = Errno{Code: 30201, Message: "Gas fee editor already open for this request"}
	ErrNoEditSession        = Errno{Code: 30202, Message: "Gas fee editor is not open for this request"}
	ErrTierUnavailable      = Errno{Code: 30301, Message: "Fee tier unavailable"}
	ErrEstimatesUnavailable = Errno{Code: 30302, Message: "Network fee estimates unavailable"}
)
