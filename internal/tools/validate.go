package tools

import (
	"fmt"

	"google.golang.org/genai"
)

// ValidateArgs checks args against a tool's declared parameter schema:
// required fields must be present and every supplied value must match
// its declared type. Unknown fields are rejected when the schema lists
// properties.
func ValidateArgs(decl *genai.FunctionDeclaration, args map[string]any) error {
	if decl == nil || decl.Parameters == nil {
		return nil
	}
	schema := decl.Parameters

	for _, req := range schema.Required {
		if _, ok := args[req]; !ok {
			return NewValidationError(req, "is required")
		}
	}

	if len(schema.Properties) == 0 {
		return nil
	}

	for key, val := range args {
		prop, ok := schema.Properties[key]
		if !ok {
			return NewValidationError(key, "unknown argument")
		}
		if err := checkType(prop, val); err != nil {
			return NewValidationError(key, err.Error())
		}
	}
	return nil
}

func checkType(schema *genai.Schema, val any) error {
	if schema == nil || val == nil {
		return nil
	}

	switch schema.Type {
	case genai.TypeString:
		if _, ok := val.(string); !ok {
			return fmt.Errorf("expected string, got %T", val)
		}
	case genai.TypeBoolean:
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", val)
		}
	case genai.TypeInteger, genai.TypeNumber:
		switch val.(type) {
		case int, int32, int64, float32, float64:
		default:
			return fmt.Errorf("expected number, got %T", val)
		}
	case genai.TypeArray:
		items, ok := val.([]any)
		if !ok {
			return fmt.Errorf("expected array, got %T", val)
		}
		for _, item := range items {
			if err := checkType(schema.Items, item); err != nil {
				return err
			}
		}
	case genai.TypeObject:
		if _, ok := val.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", val)
		}
	}
	return nil
}
