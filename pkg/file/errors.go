package file

import "errors"

var (
	ErrInvalidPath        = errors.New("file: invalid path")
	ErrFileNotFound       = errors.New("file: not found")
	ErrFileTooLarge       = errors.New("file: size exceeds the allowed maximum")
	ErrEmptyFile          = errors.New("file: empty file")
	ErrMIMETypeNotAllowed = errors.New("file: MIME type is not allowed")
	ErrFailedToWriteFile  = errors.New("file: failed to write file")
	ErrFailedToDeleteFile = errors.New("file: failed to delete file")
	ErrInvalidConfig      = errors.New("file: invalid configuration")
	ErrFailedToLoadConfig = errors.New("file: failed to load AWS config")

	ErrBucketNotFound     = errors.New("file: bucket not found")
	ErrAccessDenied       = errors.New("file: access denied")
	ErrServiceUnavailable = errors.New("file: storage temporarily unavailable")
	ErrOperationTimeout   = errors.New("file: operation timed out")
	ErrOperationCanceled  = errors.New("file: operation canceled")
)
