package tools

// Schema is a JSON Schema document in map form, ready for json.Marshal.
type Schema = map[string]interface{}

// ObjectSchema creates an object schema with the given properties.
// additionalProperties is closed so providers with strict structured output accept it.
func ObjectSchema(properties Schema, required ...string) Schema {
	schema := Schema{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringProperty creates a string property with optional description.
func StringProperty(description string) Schema {
	return Schema{
		"type":        "string",
		"description": description,
	}
}

// StringEnumProperty creates a string property with allowed values.
func StringEnumProperty(description string, values ...string) Schema {
	return Schema{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
}

// BooleanProperty creates a boolean property with optional description.
func BooleanProperty(description string) Schema {
	return Schema{
		"type":        "boolean",
		"description": description,
	}
}

// WithThought adds a "thought" property to a copy of schema.
// If requireThought is true, "thought" is added to the required array.
func WithThought(schema Schema, requireThought bool) Schema {
	result := make(Schema, len(schema))
	for k, v := range schema {
		result[k] = v
	}

	props := make(Schema)
	if existing, ok := result["properties"].(Schema); ok {
		for k, v := range existing {
			props[k] = v
		}
	}
	props["thought"] = StringProperty(
		"One sentence on why you chose this action. Never shown to the user.",
	)
	result["properties"] = props

	if requireThought {
		var required []string
		if existing, ok := result["required"].([]string); ok {
			required = append(required, existing...)
		}
		result["required"] = append(required, "thought")
	}

	return result
}
