package submit

// ErrorKind classifies a submission failure.
type ErrorKind string

const (
	// KindValidation means nothing was sent.
	KindValidation ErrorKind = "validation"
	// KindTransport covers network failures and non-conflict refusals.
	KindTransport ErrorKind = "transport"
)

// SubmitError is one entry of Result.Errors.
type SubmitError struct {
	Kind    ErrorKind
	Message string
	// Code is the HTTP status when the repository answered.
	Code int
}

func (e SubmitError) Error() string {
	return string(e.Kind) + ": " + e.Message
}
