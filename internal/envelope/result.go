package envelope

// Failure codes produced locally rather than by the server.
const (
	// CodeContractViolation marks a transport-successful response that
	// breaks the envelope invariants.
	CodeContractViolation = "contract_violation"
)

const (
	msgNetworkFailed     = "Network request failed"
	msgContractViolation = "Response failed the API contract check."
	msgMissingSuccess    = "Response is missing the success field."
	msgEncodeFailed      = "Request body could not be encoded."
)

// Result is the normalized outcome of one API call. OK selects the active
// variant: on success Data is set; on failure Error, Code and Hint are.
// RequestID is empty only when no response was received or the request
// was rejected locally before dispatch.
type Result[T any] struct {
	OK        bool   `json:"ok"`
	Status    int    `json:"status"`
	RequestID string `json:"requestId,omitempty"`
	Data      T      `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	Hint      string `json:"hint,omitempty"`

	// IdempotencyKey is the Idempotency-Key header sent with a mutating
	// request, kept for support correlation.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// Success builds a success result.
func Success[T any](status int, requestID string, data T) Result[T] {
	return Result[T]{OK: true, Status: status, RequestID: requestID, Data: data}
}

// Failure builds a failure result.
func Failure[T any](status int, message, code, hint, requestID string) Result[T] {
	return Result[T]{Status: status, Error: message, Code: code, Hint: hint, RequestID: requestID}
}

// NetworkFailure is the result for a request that never got a response.
func NetworkFailure[T any]() Result[T] {
	return Failure[T](0, msgNetworkFailed, "", "", "")
}

// LocalFailure is the result for input rejected before any network call.
func LocalFailure[T any](message, code string) Result[T] {
	return Failure[T](0, message, code, "", "")
}

// Map converts the payload of a success result, carrying failures through
// unchanged.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	out := Result[U]{
		OK:             r.OK,
		Status:         r.Status,
		RequestID:      r.RequestID,
		Error:          r.Error,
		Code:           r.Code,
		Hint:           r.Hint,
		IdempotencyKey: r.IdempotencyKey,
	}
	if r.OK {
		out.Data = fn(r.Data)
	}
	return out
}
