// Package prompts builds the LLM prompts used by the diagram assistant:
// generation prompts that carry the target document schema and edit prompts
// that carry the current document plus the change set format.
package prompts

import (
	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
)

// typeLabel returns the prose name for a diagram type tag.
func typeLabel(diagramType string) string {
	switch diagramType {
	case models.DiagramTypeUseCase:
		return "use case diagram"
	case models.DiagramTypeClass:
		return "UML class diagram"
	default:
		return "database (ER) diagram"
	}
}

// schemaExample returns a complete example document for a diagram type.
// The examples use the exact field names the parsers expect.
func schemaExample(diagramType string) string {
	switch diagramType {
	case models.DiagramTypeUseCase:
		return useCaseExample
	case models.DiagramTypeClass:
		return classExample
	default:
		return databaseExample
	}
}

const databaseExample = `{
  "diagramType": "ER Diagram",
  "diagramName": "Online Store",
  "tables": [
    {
      "name": "users",
      "columns": [
        {"name": "id", "type": "uuid", "constraints": ["primary key"]},
        {"name": "email", "type": "varchar(255)", "constraints": ["unique", "not null"]}
      ],
      "primaryKey": ["id"]
    },
    {
      "name": "orders",
      "columns": [
        {"name": "id", "type": "uuid", "constraints": ["primary key"]},
        {"name": "user_id", "type": "uuid", "constraints": ["not null"]},
        {"name": "total", "type": "decimal(10,2)", "default": "0"}
      ],
      "primaryKey": ["id"]
    }
  ],
  "relationships": [
    {
      "fromTable": "orders",
      "toTable": "users",
      "fromColumns": ["user_id"],
      "toColumns": ["id"],
      "cardinality": "many-to-one",
      "onDelete": "CASCADE"
    }
  ]
}`

const useCaseExample = `{
  "diagramType": "Use Case Diagram",
  "diagramName": "Online Store",
  "actors": [
    {"name": "Customer", "description": "Shops in the store"},
    {"name": "Support Agent"}
  ],
  "useCases": [
    {"name": "Place Order"},
    {"name": "Pay by Card"},
    {"name": "Refund Order"}
  ],
  "relationships": [
    {"from": "Customer", "to": "Place Order", "type": "association"},
    {"from": "Place Order", "to": "Pay by Card", "type": "includes"},
    {"from": "Support Agent", "to": "Refund Order", "type": "association"}
  ]
}`

const classExample = `{
  "diagramType": "UML Class Diagram",
  "diagramName": "Online Store",
  "classes": [
    {
      "name": "Order",
      "type": "class",
      "attributes": [
        {"name": "total", "type": "decimal", "visibility": "private"}
      ],
      "methods": [
        {"name": "addItem", "parameters": [{"name": "item", "type": "OrderItem"}], "returnType": "void", "visibility": "public"}
      ]
    },
    {
      "name": "PaymentMethod",
      "type": "interface",
      "attributes": [],
      "methods": [
        {"name": "charge", "parameters": [{"name": "amount", "type": "decimal"}], "returnType": "bool", "visibility": "public", "isAbstract": true}
      ]
    }
  ],
  "relationships": [
    {"fromClass": "Order", "toClass": "PaymentMethod", "type": "dependency", "label": "pays via"}
  ]
}`
