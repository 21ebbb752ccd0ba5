// Package logtable maps enriched log events onto the fixed row shape of the
// legacy log table.
//
// The package has two halves. The field names in this file are the property
// keys the enrichment pipeline writes; they are the single source of truth
// shared by the enrichers and the column mappings. The Mapping type declares,
// as data, which property lands in which column, with what SQL type, length
// and nullability.
//
// Example usage:
//
//	m, err := logtable.Lookup(logtable.DefaultVersion)
//	if err != nil {
//	    return err
//	}
//	if err := m.Validate(enrichers.Guarantees()); err != nil {
//	    return err
//	}
//	row, err := m.Row(event)
package logtable

// Property keys expected by the legacy log table consumers.
// Column mappings reference these constants, never the literal strings.
const (
	// EventID holds the legacy event type identifier.
	EventID = "LegacyEventTypeId"

	// Title holds the raw, unrendered message template.
	Title = "MessageTemplate"

	// Category holds the legacy event category name.
	Category = "LegacyEventCategoryName"

	// Message holds the rendered message.
	Message = "Message"

	// ExceptionText holds the "key:value | key:value" property dump.
	ExceptionText = "Properties"

	// Computer holds the name of the machine that produced the event.
	Computer = "MachineName"

	// RegisteredAppID holds the legacy registered application identifier.
	RegisteredAppID = "LegacyRegisteredAppId"

	// Type holds the severity level name.
	Type = "Level"
)

var fieldNames = []string{
	Type,
	EventID,
	Title,
	Category,
	Message,
	ExceptionText,
	Computer,
	RegisteredAppID,
}

// FieldNames returns the legacy property keys in column order.
func FieldNames() []string {
	out := make([]string, len(fieldNames))
	copy(out, fieldNames)
	return out
}

// IsFieldName reports whether name is one of the legacy property keys.
func IsFieldName(name string) bool {
	for _, f := range fieldNames {
		if f == name {
			return true
		}
	}
	return false
}
