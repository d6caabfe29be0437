package models

import (
	"encoding/json"
	"fmt"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
	"github.com/sketchwork-app/sketchwork-engine/pkg/jsonutil"
)

// Class stereotype values for UMLClass.Type.
const (
	ClassKindClass     = "class"
	ClassKindAbstract  = "abstract class"
	ClassKindInterface = "interface"
)

// Class relationship types.
const (
	ClassRelInheritance = "inheritance"
	ClassRelComposition = "composition"
	ClassRelAggregation = "aggregation"
	ClassRelAssociation = "association"
	ClassRelDependency  = "dependency"
)

// ValidClassRelTypes lists all accepted class relationship types.
var ValidClassRelTypes = []string{
	ClassRelInheritance,
	ClassRelComposition,
	ClassRelAggregation,
	ClassRelAssociation,
	ClassRelDependency,
}

// IsValidClassRelType reports whether t is a recognized class relationship
// type.
func IsValidClassRelType(t string) bool {
	for _, v := range ValidClassRelTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Member visibility markers.
const (
	VisibilityPublic    = "public"
	VisibilityPrivate   = "private"
	VisibilityProtected = "protected"
)

// Attribute is a class field.
type Attribute struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	Visibility string `json:"visibility,omitempty"`
}

// Parameter is a method parameter.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Method is a class operation.
type Method struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters,omitempty"`
	ReturnType string      `json:"returnType,omitempty"`
	Visibility string      `json:"visibility,omitempty"`
	IsAbstract bool        `json:"isAbstract,omitempty"`
}

// UnmarshalJSON tolerates assistant-produced documents where isAbstract
// arrives as a string or number instead of a boolean.
func (m *Method) UnmarshalJSON(data []byte) error {
	type alias struct {
		Name       string          `json:"name"`
		Parameters []Parameter     `json:"parameters"`
		ReturnType string          `json:"returnType"`
		Visibility string          `json:"visibility"`
		IsAbstract json.RawMessage `json:"isAbstract"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	m.Name = a.Name
	m.Parameters = a.Parameters
	m.ReturnType = a.ReturnType
	m.Visibility = a.Visibility
	m.IsAbstract = jsonutil.FlexibleBoolValue(a.IsAbstract)
	return nil
}

// UMLClass is a class, abstract class, or interface in a class diagram.
type UMLClass struct {
	Name       string      `json:"name"`
	Type       string      `json:"type,omitempty"`
	Attributes []Attribute `json:"attributes"`
	Methods    []Method    `json:"methods"`
}

// ClassRelationship links two classes by name.
type ClassRelationship struct {
	FromClass string `json:"fromClass"`
	ToClass   string `json:"toClass"`
	Type      string `json:"type"`
	Label     string `json:"label,omitempty"`
}

// ClassDiagram is the persisted document for a UML class diagram.
type ClassDiagram struct {
	DiagramType   string              `json:"diagramType"`
	DiagramName   string              `json:"diagramName"`
	Classes       []UMLClass          `json:"classes"`
	Relationships []ClassRelationship `json:"relationships"`
}

// NewClassDiagram returns an empty class diagram with the type tag set.
func NewClassDiagram(name string) *ClassDiagram {
	return &ClassDiagram{
		DiagramType:   DiagramTypeClass,
		DiagramName:   name,
		Classes:       []UMLClass{},
		Relationships: []ClassRelationship{},
	}
}

// ParseClassDiagram parses and validates a class diagram document.
func ParseClassDiagram(data []byte) (*ClassDiagram, error) {
	var d ClassDiagram
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidDiagram, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the type tag, class names, and relationship references.
func (d *ClassDiagram) Validate() error {
	if d.DiagramType != DiagramTypeClass {
		return fmt.Errorf("%w: diagramType %q", apperrors.ErrInvalidDiagram, d.DiagramType)
	}

	names := make(map[string]bool, len(d.Classes))
	for i, c := range d.Classes {
		if c.Name == "" {
			return fmt.Errorf("%w: class %d has no name", apperrors.ErrInvalidDiagram, i)
		}
		names[c.Name] = true
	}

	for i, r := range d.Relationships {
		if !IsValidClassRelType(r.Type) {
			return fmt.Errorf("%w: relationship %d type %q", apperrors.ErrInvalidRelationshipType, i, r.Type)
		}
		if !names[r.FromClass] {
			return fmt.Errorf("%w: relationship %d references unknown class %q", apperrors.ErrInvalidDiagram, i, r.FromClass)
		}
		if !names[r.ToClass] {
			return fmt.Errorf("%w: relationship %d references unknown class %q", apperrors.ErrInvalidDiagram, i, r.ToClass)
		}
	}
	return nil
}
