package apperr

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeExternalService  Code = "EXTERNAL_SERVICE"
	CodeInternal         Code = "INTERNAL"
	CodeDeadlineExceeded Code = "DEADLINE_EXCEEDED"
)
