package mssql

import "strings"

// mapType converts SQL Server type names to the generic lowercase names the
// rest of the system uses, matching what PostgreSQL reports for the same
// concepts. Unrecognized types pass through lowercased.
func mapType(sqlServerType string) string {
	switch strings.ToLower(sqlServerType) {
	case "tinyint", "smallint":
		return "smallint"
	case "int":
		return "integer"
	case "bigint":
		return "bigint"
	case "decimal", "numeric", "money", "smallmoney":
		return "numeric"
	case "float":
		return "double precision"
	case "real":
		return "real"
	case "char", "nchar":
		return "character"
	case "varchar", "nvarchar":
		return "varchar"
	case "text", "ntext":
		return "text"
	case "binary", "varbinary", "image":
		return "bytea"
	case "date":
		return "date"
	case "time":
		return "time"
	case "datetime", "datetime2", "smalldatetime":
		return "timestamp"
	case "datetimeoffset":
		return "timestamp with time zone"
	case "bit":
		return "boolean"
	case "uniqueidentifier":
		return "uuid"
	case "xml":
		return "xml"
	default:
		return strings.ToLower(sqlServerType)
	}
}
