package audit

import "errors"

var (
	ErrAcquisition       = errors.New("audit session acquisition failed")
	ErrNavigationTimeout = errors.New("audit navigation timed out")
	ErrAuditInProgress   = errors.New("audit already in progress for target")
	ErrInvalidReport     = errors.New("audit backend returned invalid report")
)
