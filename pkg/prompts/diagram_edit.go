package prompts

import (
	"fmt"
	"strings"

	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
)

// BuildEditPrompt creates the prompt for editing an existing diagram. The
// model responds with a change set rather than a full document, so unchanged
// content cannot be mangled in transit.
func BuildEditPrompt(diagramType, document, instruction string) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("# %s Edit\n\n", diagramType))
	prompt.WriteString("Apply the requested change to the diagram below.\n\n")

	prompt.WriteString("## Current Diagram\n\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(document)
	prompt.WriteString("\n```\n\n")

	prompt.WriteString("## Requested Change\n\n")
	prompt.WriteString(instruction)
	prompt.WriteString("\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond in JSON with a change set:\n\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(changeSetExample(diagramType))
	prompt.WriteString("\n```\n\n")

	writeChangeSetRules(&prompt, diagramType)
	prompt.WriteString("- Omit `add`/`remove` lists you do not need; never restate unchanged content\n")
	prompt.WriteString("- Added entries use the same shapes as the document format\n")
	prompt.WriteString("- Added relationships may only reference entities that exist after the change\n\n")

	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// BuildEditSystemMessage returns the system message for diagram editing.
func BuildEditSystemMessage(diagramType string) string {
	return fmt.Sprintf("You are a software modeling assistant. You revise %ss by emitting minimal change sets as strict JSON, never prose.", typeLabel(diagramType))
}

func writeChangeSetRules(prompt *strings.Builder, diagramType string) {
	switch diagramType {
	case models.DiagramTypeUseCase:
		prompt.WriteString("- Remove actors and use cases by name\n")
		prompt.WriteString("- Remove relationships by `from`, `to`, and `type`\n")
	case models.DiagramTypeClass:
		prompt.WriteString("- Remove classes by name\n")
		prompt.WriteString("- Remove relationships by `fromClass`, `toClass`, and `type`\n")
	default:
		prompt.WriteString("- Remove tables by name\n")
		prompt.WriteString("- Remove relationships by `fromTable` and `toTable`\n")
	}
}

// changeSetExample returns a worked change set for a diagram type.
func changeSetExample(diagramType string) string {
	switch diagramType {
	case models.DiagramTypeUseCase:
		return useCaseChangeSetExample
	case models.DiagramTypeClass:
		return classChangeSetExample
	default:
		return databaseChangeSetExample
	}
}

const databaseChangeSetExample = `{
  "changes": {
    "tables": {
      "add": [
        {
          "name": "invoices",
          "columns": [
            {"name": "id", "type": "uuid", "constraints": ["primary key"]},
            {"name": "order_id", "type": "uuid", "constraints": ["not null"]}
          ],
          "primaryKey": ["id"]
        }
      ],
      "remove": ["legacy_sessions"]
    },
    "relationships": {
      "add": [
        {
          "fromTable": "invoices",
          "toTable": "orders",
          "fromColumns": ["order_id"],
          "toColumns": ["id"],
          "cardinality": "one-to-one"
        }
      ],
      "remove": [
        {"fromTable": "orders", "toTable": "sessions"}
      ]
    }
  }
}`

const useCaseChangeSetExample = `{
  "changes": {
    "actors": {
      "add": [{"name": "Warehouse Clerk"}],
      "remove": ["Guest"]
    },
    "useCases": {
      "add": [{"name": "Ship Order"}]
    },
    "relationships": {
      "add": [{"from": "Warehouse Clerk", "to": "Ship Order", "type": "association"}],
      "remove": [{"from": "Guest", "to": "Place Order", "type": "association"}]
    }
  }
}`

const classChangeSetExample = `{
  "changes": {
    "classes": {
      "add": [
        {
          "name": "Invoice",
          "type": "class",
          "attributes": [{"name": "number", "type": "string", "visibility": "private"}],
          "methods": []
        }
      ],
      "remove": ["LegacyBilling"]
    },
    "relationships": {
      "add": [{"fromClass": "Invoice", "toClass": "Order", "type": "association", "label": "bills"}],
      "remove": [{"fromClass": "Order", "toClass": "LegacyBilling", "type": "dependency"}]
    }
  }
}`
