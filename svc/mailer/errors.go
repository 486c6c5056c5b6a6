package mailer

import "errors"

var (
	ErrUnknownMailKind = errors.New("mailer: unknown mail kind")
	ErrEnqueue         = errors.New("mailer: failed to enqueue email")
	ErrRender          = errors.New("mailer: failed to render email")
)
