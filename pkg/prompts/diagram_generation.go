package prompts

import (
	"fmt"
	"strings"

	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
)

// BuildGeneratePrompt creates the prompt for generating a new diagram from a
// natural-language request. It includes the target document schema, the
// validation rules the document must satisfy, and the JSON-only output
// instruction.
func BuildGeneratePrompt(diagramType, request string) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("# %s Generation\n\n", diagramType))
	prompt.WriteString(fmt.Sprintf("Create a %s from the following request.\n\n", typeLabel(diagramType)))

	prompt.WriteString("## Request\n\n")
	prompt.WriteString(request)
	prompt.WriteString("\n\n")

	prompt.WriteString("## Document Format\n\n")
	prompt.WriteString("Respond with a single JSON document in exactly this shape:\n\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(schemaExample(diagramType))
	prompt.WriteString("\n```\n\n")

	prompt.WriteString("## Rules\n\n")
	prompt.WriteString(fmt.Sprintf("- `diagramType` must be exactly %q\n", diagramType))
	writeTypeRules(&prompt, diagramType)
	prompt.WriteString("- Entity names must be unique within the document\n")
	prompt.WriteString("- Relationships may only reference entities defined in this document\n")
	prompt.WriteString("- Cover everything the request asks for; do not invent unrelated entities\n\n")

	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// BuildGenerateSystemMessage returns the system message for diagram generation.
func BuildGenerateSystemMessage(diagramType string) string {
	return fmt.Sprintf("You are a software modeling assistant. You design %ss and respond with strict JSON documents, never prose.", typeLabel(diagramType))
}

// writeTypeRules appends the per-type constraints that document validation
// will enforce on the response.
func writeTypeRules(prompt *strings.Builder, diagramType string) {
	switch diagramType {
	case models.DiagramTypeUseCase:
		prompt.WriteString(fmt.Sprintf("- Relationship `type` must be one of: %s\n",
			strings.Join(models.ValidUseCaseRelTypes, ", ")))
		prompt.WriteString("- Any relationship touching an actor must use type \"association\"\n")
		prompt.WriteString("- includes, extends, and generalizes are only valid between two use cases\n")
	case models.DiagramTypeClass:
		prompt.WriteString(fmt.Sprintf("- Relationship `type` must be one of: %s\n",
			strings.Join(models.ValidClassRelTypes, ", ")))
		prompt.WriteString(fmt.Sprintf("- Class `type` is one of: %q, %q, %q (defaults to %q when omitted)\n",
			models.ClassKindClass, models.ClassKindAbstract, models.ClassKindInterface, models.ClassKindClass))
		prompt.WriteString("- Always include `attributes` and `methods` arrays, even when empty\n")
	default:
		prompt.WriteString(fmt.Sprintf("- Relationship `cardinality` must be one of: %s\n",
			strings.Join(models.ValidCardinalities, ", ")))
		prompt.WriteString(fmt.Sprintf("- `onDelete`/`onUpdate`, when present, must be one of: %s\n",
			strings.Join(models.ValidReferentialActions, ", ")))
		prompt.WriteString("- `fromColumns` and `toColumns` are parallel lists of the joined columns\n")
	}
}
