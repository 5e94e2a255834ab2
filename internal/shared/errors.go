package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Remote store errors
	ErrServiceUnavailable  = fmt.Errorf("service unavailable")
	ErrAPIRequest          = fmt.Errorf("API request failed")
	ErrRetriesExhausted    = fmt.Errorf("retries exhausted")
	ErrSpreadsheetNotFound = fmt.Errorf("spreadsheet not found")
	ErrTabNotFound         = fmt.Errorf("sheet tab not found")
	ErrFolderNotFound      = fmt.Errorf("folder not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
