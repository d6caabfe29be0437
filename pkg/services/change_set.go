package services

import (
	"fmt"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
	"github.com/sketchwork-app/sketchwork-engine/pkg/llm"
	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
)

// Change sets are the assistant's edit format: per-list add/remove pairs
// instead of a rewritten document, so content the instruction never touched
// cannot be mangled in transit. Entities are removed by name; relationships
// are removed by their endpoints, plus the relationship type where the
// diagram kind has one. Additions that duplicate an existing entry are
// dropped. Removing an entity also removes the relationships that reference
// it, matching how deleting a node on the canvas behaves.

type databaseChangeSet struct {
	Changes struct {
		Tables struct {
			Add    []models.Table `json:"add"`
			Remove []string       `json:"remove"`
		} `json:"tables"`
		Relationships struct {
			Add    []models.DatabaseRelationship `json:"add"`
			Remove []models.DatabaseRelationship `json:"remove"`
		} `json:"relationships"`
	} `json:"changes"`
}

type useCaseChangeSet struct {
	Changes struct {
		Actors struct {
			Add    []models.Actor `json:"add"`
			Remove []string       `json:"remove"`
		} `json:"actors"`
		UseCases struct {
			Add    []models.UseCase `json:"add"`
			Remove []string         `json:"remove"`
		} `json:"useCases"`
		Relationships struct {
			Add    []models.UseCaseRelationship `json:"add"`
			Remove []models.UseCaseRelationship `json:"remove"`
		} `json:"relationships"`
	} `json:"changes"`
}

type classChangeSet struct {
	Changes struct {
		Classes struct {
			Add    []models.UMLClass `json:"add"`
			Remove []string          `json:"remove"`
		} `json:"classes"`
		Relationships struct {
			Add    []models.ClassRelationship `json:"add"`
			Remove []models.ClassRelationship `json:"remove"`
		} `json:"relationships"`
	} `json:"changes"`
}

// applyChangeSet digs the change set out of an assistant response, applies
// it to a freshly parsed document, and validates the result.
func applyChangeSet(doc any, response string) (any, error) {
	switch d := doc.(type) {
	case *models.DatabaseDiagram:
		if err := applyDatabaseChangeSet(d, response); err != nil {
			return nil, err
		}
		return d, nil
	case *models.UseCaseDiagram:
		if err := applyUseCaseChangeSet(d, response); err != nil {
			return nil, err
		}
		return d, nil
	case *models.ClassDiagram:
		if err := applyClassChangeSet(d, response); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unexpected document type %T", doc)
	}
}

func applyDatabaseChangeSet(doc *models.DatabaseDiagram, response string) error {
	cs, err := llm.ParseJSONResponse[databaseChangeSet](response)
	if err != nil {
		return fmt.Errorf("%w: change set: %v", apperrors.ErrInvalidDiagram, err)
	}

	for _, name := range cs.Changes.Tables.Remove {
		for i := range doc.Tables {
			if doc.Tables[i].Name == name {
				doc.Tables = append(doc.Tables[:i], doc.Tables[i+1:]...)
				doc.Relationships = filterDatabaseRelationships(doc.Relationships, func(r models.DatabaseRelationship) bool {
					return r.FromTable != name && r.ToTable != name
				})
				break
			}
		}
	}

	for _, rel := range cs.Changes.Relationships.Remove {
		from, to := rel.FromTable, rel.ToTable
		doc.Relationships = filterDatabaseRelationships(doc.Relationships, func(r models.DatabaseRelationship) bool {
			return r.FromTable != from || r.ToTable != to
		})
	}

	for _, t := range cs.Changes.Tables.Add {
		if !hasTableNamed(doc.Tables, t.Name) {
			doc.Tables = append(doc.Tables, t)
		}
	}
	for _, rel := range cs.Changes.Relationships.Add {
		if !hasDatabaseRelationship(doc.Relationships, rel) {
			doc.Relationships = append(doc.Relationships, rel)
		}
	}

	return doc.Validate()
}

func applyUseCaseChangeSet(doc *models.UseCaseDiagram, response string) error {
	cs, err := llm.ParseJSONResponse[useCaseChangeSet](response)
	if err != nil {
		return fmt.Errorf("%w: change set: %v", apperrors.ErrInvalidDiagram, err)
	}

	for _, name := range cs.Changes.Actors.Remove {
		for i := range doc.Actors {
			if doc.Actors[i].Name == name {
				doc.Actors = append(doc.Actors[:i], doc.Actors[i+1:]...)
				doc.Relationships = dropUseCaseRelationshipsTouching(doc.Relationships, name)
				break
			}
		}
	}
	for _, name := range cs.Changes.UseCases.Remove {
		for i := range doc.UseCases {
			if doc.UseCases[i].Name == name {
				doc.UseCases = append(doc.UseCases[:i], doc.UseCases[i+1:]...)
				doc.Relationships = dropUseCaseRelationshipsTouching(doc.Relationships, name)
				break
			}
		}
	}

	for _, rel := range cs.Changes.Relationships.Remove {
		entry := rel
		doc.Relationships = filterUseCaseRelationships(doc.Relationships, func(r models.UseCaseRelationship) bool {
			return !matchesUseCaseRelationship(r, entry)
		})
	}

	for _, a := range cs.Changes.Actors.Add {
		if !hasUseCaseEntity(doc, a.Name) {
			doc.Actors = append(doc.Actors, a)
		}
	}
	for _, u := range cs.Changes.UseCases.Add {
		if !hasUseCaseEntity(doc, u.Name) {
			doc.UseCases = append(doc.UseCases, u)
		}
	}
	for _, rel := range cs.Changes.Relationships.Add {
		if !hasUseCaseRelationship(doc.Relationships, rel) {
			doc.Relationships = append(doc.Relationships, rel)
		}
	}

	return doc.Validate()
}

func applyClassChangeSet(doc *models.ClassDiagram, response string) error {
	cs, err := llm.ParseJSONResponse[classChangeSet](response)
	if err != nil {
		return fmt.Errorf("%w: change set: %v", apperrors.ErrInvalidDiagram, err)
	}

	for _, name := range cs.Changes.Classes.Remove {
		for i := range doc.Classes {
			if doc.Classes[i].Name == name {
				doc.Classes = append(doc.Classes[:i], doc.Classes[i+1:]...)
				doc.Relationships = filterClassRelationships(doc.Relationships, func(r models.ClassRelationship) bool {
					return r.FromClass != name && r.ToClass != name
				})
				break
			}
		}
	}

	for _, rel := range cs.Changes.Relationships.Remove {
		entry := rel
		doc.Relationships = filterClassRelationships(doc.Relationships, func(r models.ClassRelationship) bool {
			return !matchesClassRelationship(r, entry)
		})
	}

	for _, c := range cs.Changes.Classes.Add {
		if !hasClassNamed(doc.Classes, c.Name) {
			if c.Attributes == nil {
				c.Attributes = []models.Attribute{}
			}
			if c.Methods == nil {
				c.Methods = []models.Method{}
			}
			doc.Classes = append(doc.Classes, c)
		}
	}
	for _, rel := range cs.Changes.Relationships.Add {
		if !hasClassRelationship(doc.Relationships, rel) {
			doc.Relationships = append(doc.Relationships, rel)
		}
	}

	return doc.Validate()
}

// matchesUseCaseRelationship reports whether r matches a removal entry.
// An empty type in the entry matches any relationship type.
func matchesUseCaseRelationship(r, entry models.UseCaseRelationship) bool {
	if r.From != entry.From || r.To != entry.To {
		return false
	}
	return entry.Type == "" || r.Type == entry.Type
}

func matchesClassRelationship(r, entry models.ClassRelationship) bool {
	if r.FromClass != entry.FromClass || r.ToClass != entry.ToClass {
		return false
	}
	return entry.Type == "" || r.Type == entry.Type
}

func filterDatabaseRelationships(rels []models.DatabaseRelationship, keep func(models.DatabaseRelationship) bool) []models.DatabaseRelationship {
	out := rels[:0]
	for _, r := range rels {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func filterUseCaseRelationships(rels []models.UseCaseRelationship, keep func(models.UseCaseRelationship) bool) []models.UseCaseRelationship {
	out := rels[:0]
	for _, r := range rels {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func filterClassRelationships(rels []models.ClassRelationship, keep func(models.ClassRelationship) bool) []models.ClassRelationship {
	out := rels[:0]
	for _, r := range rels {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func dropUseCaseRelationshipsTouching(rels []models.UseCaseRelationship, name string) []models.UseCaseRelationship {
	return filterUseCaseRelationships(rels, func(r models.UseCaseRelationship) bool {
		return r.From != name && r.To != name
	})
}

func hasTableNamed(tables []models.Table, name string) bool {
	for i := range tables {
		if tables[i].Name == name {
			return true
		}
	}
	return false
}

func hasClassNamed(classes []models.UMLClass, name string) bool {
	for i := range classes {
		if classes[i].Name == name {
			return true
		}
	}
	return false
}

func hasUseCaseEntity(doc *models.UseCaseDiagram, name string) bool {
	for i := range doc.Actors {
		if doc.Actors[i].Name == name {
			return true
		}
	}
	for i := range doc.UseCases {
		if doc.UseCases[i].Name == name {
			return true
		}
	}
	return false
}

func hasDatabaseRelationship(rels []models.DatabaseRelationship, rel models.DatabaseRelationship) bool {
	for _, r := range rels {
		if r.FromTable == rel.FromTable && r.ToTable == rel.ToTable {
			return true
		}
	}
	return false
}

func hasUseCaseRelationship(rels []models.UseCaseRelationship, rel models.UseCaseRelationship) bool {
	for _, r := range rels {
		if r.From == rel.From && r.To == rel.To && r.Type == rel.Type {
			return true
		}
	}
	return false
}

func hasClassRelationship(rels []models.ClassRelationship, rel models.ClassRelationship) bool {
	for _, r := range rels {
		if r.FromClass == rel.FromClass && r.ToClass == rel.ToClass && r.Type == rel.Type {
			return true
		}
	}
	return false
}
