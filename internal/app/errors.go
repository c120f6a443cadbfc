package service

import (
	"errors"
	"fmt"

	"github.com/okian/leadscore/internal/domain/model"
)

// Sentinel error kinds for the pipeline. Validation, template and upstream
// kinds live with the packages that raise them.
var (
	ErrPartialSuccess = errors.New("partial success")
	ErrRender         = errors.New("chart rendering failed")
	ErrInternal       = errors.New("internal error")
)

// PartialSuccessError reports a stored report that could not be attached to
// the lead. Upload carries the file id needed to retry the attach step.
type PartialSuccessError struct {
	Upload     model.UploadResult
	Attachment model.AttachmentResult
	Err        error
}

func (e *PartialSuccessError) Error() string {
	return fmt.Sprintf("uploaded %s but attach failed: %v", e.Upload.FileID, e.Err)
}

func (e *PartialSuccessError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPartialSuccess}
	}
	return []error{ErrPartialSuccess, e.Err}
}

// wrap prefixes err with the failing operation.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
