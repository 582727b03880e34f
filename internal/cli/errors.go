package cli

import (
	goerrors "errors"

	texttemplate "github.com/yetanotherchris/text-template"
	"github.com/yetanotherchris/text-template/internal/errors"
)

// DescribeError renders template errors with an excerpt of the failing
// source. Other errors are returned as their message.
func DescribeError(err error) string {
	var tmplErr *texttemplate.Error
	if goerrors.As(err, &tmplErr) {
		return errors.Render(tmplErr)
	}
	return err.Error()
}
