package models

import (
	"encoding/json"
	"fmt"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
)

// Diagram type tags as they appear in the diagramType field of persisted
// documents. The tag selects which controller and canvas handle the file.
const (
	DiagramTypeER      = "ER Diagram"
	DiagramTypeUseCase = "Use Case Diagram"
	DiagramTypeClass   = "UML Class Diagram"
)

// ValidDiagramTypes lists the diagram type tags this engine can edit.
var ValidDiagramTypes = []string{
	DiagramTypeER,
	DiagramTypeUseCase,
	DiagramTypeClass,
}

// IsValidDiagramType reports whether t is a recognized diagram type tag.
func IsValidDiagramType(t string) bool {
	for _, v := range ValidDiagramTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Entity kind tags used for canvas node types and AddNode requests.
const (
	EntityKindActor   = "actor"
	EntityKindUseCase = "useCase"
	EntityKindTable   = "table"
	EntityKindClass   = "class"
)

// DiagramEnvelope is the common header shared by all diagram documents.
type DiagramEnvelope struct {
	DiagramType string `json:"diagramType"`
	DiagramName string `json:"diagramName"`
}

// DetectDiagramType reads the diagramType discriminant from a raw document.
// Returns ErrInvalidDiagram for unparsable JSON and ErrUnsupportedDiagramType
// when the tag is missing or unrecognized; the caller is expected to degrade
// to an unsupported-document presentation rather than fail hard.
func DetectDiagramType(data []byte) (string, error) {
	var env DiagramEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrInvalidDiagram, err)
	}
	if !IsValidDiagramType(env.DiagramType) {
		return env.DiagramType, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedDiagramType, env.DiagramType)
	}
	return env.DiagramType, nil
}
