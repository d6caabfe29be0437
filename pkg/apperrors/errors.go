package apperrors

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrConflict                = errors.New("conflict")
	ErrInvalidDiagram          = errors.New("invalid diagram document")
	ErrUnsupportedDiagramType  = errors.New("unsupported diagram type")
	ErrInvalidConnection       = errors.New("invalid connection")
	ErrInvalidRelationshipType = errors.New("invalid relationship type")
	ErrInvalidCardinality      = errors.New("invalid cardinality")
	ErrNotReady                = errors.New("diagram is not ready")
	ErrClosed                  = errors.New("diagram is closed")
	ErrCredentialsKeyMismatch  = errors.New("connection credentials were encrypted with a different key")
)
