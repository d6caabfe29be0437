package models

import (
	"encoding/json"
	"fmt"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
)

// Use-case relationship types. Actor participation is always an association;
// the remaining types are only valid between two use cases.
const (
	UseCaseRelAssociation = "association"
	UseCaseRelIncludes    = "includes"
	UseCaseRelExtends     = "extends"
	UseCaseRelGeneralizes = "generalizes"
)

// ValidUseCaseRelTypes lists all accepted use-case relationship types.
var ValidUseCaseRelTypes = []string{
	UseCaseRelAssociation,
	UseCaseRelIncludes,
	UseCaseRelExtends,
	UseCaseRelGeneralizes,
}

// IsValidUseCaseRelType reports whether t is a recognized use-case
// relationship type.
func IsValidUseCaseRelType(t string) bool {
	for _, v := range ValidUseCaseRelTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Actor is an external participant interacting with the system.
type Actor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UseCase is a unit of system behavior an actor can invoke.
type UseCase struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UseCaseRelationship links two entities by name. From and To refer to actor
// or use-case names, never to visual node ids.
type UseCaseRelationship struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// UseCaseDiagram is the persisted document for a use-case diagram.
type UseCaseDiagram struct {
	DiagramType   string                `json:"diagramType"`
	DiagramName   string                `json:"diagramName"`
	Actors        []Actor               `json:"actors"`
	UseCases      []UseCase             `json:"useCases"`
	Relationships []UseCaseRelationship `json:"relationships"`
}

// NewUseCaseDiagram returns an empty use-case diagram with the type tag set.
func NewUseCaseDiagram(name string) *UseCaseDiagram {
	return &UseCaseDiagram{
		DiagramType:   DiagramTypeUseCase,
		DiagramName:   name,
		Actors:        []Actor{},
		UseCases:      []UseCase{},
		Relationships: []UseCaseRelationship{},
	}
}

// ParseUseCaseDiagram parses and validates a use-case diagram document.
func ParseUseCaseDiagram(data []byte) (*UseCaseDiagram, error) {
	var d UseCaseDiagram
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidDiagram, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks structural invariants: the type tag, non-empty entity
// names, and that every relationship endpoint names an existing entity.
func (d *UseCaseDiagram) Validate() error {
	if d.DiagramType != DiagramTypeUseCase {
		return fmt.Errorf("%w: diagramType %q", apperrors.ErrInvalidDiagram, d.DiagramType)
	}

	names := make(map[string]bool, len(d.Actors)+len(d.UseCases))
	for i, a := range d.Actors {
		if a.Name == "" {
			return fmt.Errorf("%w: actor %d has no name", apperrors.ErrInvalidDiagram, i)
		}
		names[a.Name] = true
	}
	for i, u := range d.UseCases {
		if u.Name == "" {
			return fmt.Errorf("%w: use case %d has no name", apperrors.ErrInvalidDiagram, i)
		}
		names[u.Name] = true
	}

	for i, r := range d.Relationships {
		if !IsValidUseCaseRelType(r.Type) {
			return fmt.Errorf("%w: relationship %d type %q", apperrors.ErrInvalidRelationshipType, i, r.Type)
		}
		if !names[r.From] {
			return fmt.Errorf("%w: relationship %d references unknown entity %q", apperrors.ErrInvalidDiagram, i, r.From)
		}
		if !names[r.To] {
			return fmt.Errorf("%w: relationship %d references unknown entity %q", apperrors.ErrInvalidDiagram, i, r.To)
		}
	}
	return nil
}

// ActorNames returns the actor name set for kind lookups during conversion.
func (d *UseCaseDiagram) ActorNames() map[string]bool {
	out := make(map[string]bool, len(d.Actors))
	for _, a := range d.Actors {
		out[a.Name] = true
	}
	return out
}
