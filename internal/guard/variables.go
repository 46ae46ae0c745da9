package guard

// Variable validation walks the caller-supplied variables map depth-first.
// JSON decoding and the MCP argument layer both hand us untyped values, so
// the walk is a structural recursion over the closed set of shapes JSON can
// produce: null, string, number, bool, list, map. Anything else is
// rejected.

// validateVariables checks variable names and every value in the tree.
func validateVariables(variables map[string]interface{}) error {
	if len(variables) > maxVariables {
		return rejectf(KindTooManyVariables,
			"%d variables supplied, maximum is %d", len(variables), maxVariables)
	}
	for name, value := range variables {
		if !variableNameRegex.MatchString(name) {
			return rejectf(KindInvalidVariableName,
				"variable name %q is not a valid identifier", name)
		}
		if err := validateVariableValue(name, value); err != nil {
			return err
		}
	}
	return nil
}

func validateVariableValue(name string, value interface{}) error {
	switch val := value.(type) {
	case nil:
		return nil

	case string:
		if len(val) > maxVariableString {
			return rejectf(KindVariableTooLarge,
				"variable %q string value is %d characters, maximum is %d",
				name, len(val), maxVariableString)
		}
		for _, re := range graphqlDangerousPatterns {
			if loc := re.FindString(val); loc != "" {
				return rejectf(KindDangerousPattern,
					"variable %q contains disallowed sequence %q", name, loc)
			}
		}
		return nil

	case bool:
		return nil

	// Numeric shapes JSON decoders and MCP argument maps produce.
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return nil

	case []interface{}:
		if len(val) > maxVariableList {
			return rejectf(KindVariableTooLarge,
				"variable %q list has %d elements, maximum is %d",
				name, len(val), maxVariableList)
		}
		for _, elem := range val {
			if err := validateVariableValue(name, elem); err != nil {
				return err
			}
		}
		return nil

	case map[string]interface{}:
		if len(val) > maxVariableMap {
			return rejectf(KindVariableTooLarge,
				"variable %q object has %d keys, maximum is %d",
				name, len(val), maxVariableMap)
		}
		for key, elem := range val {
			if !variableNameRegex.MatchString(key) {
				return rejectf(KindInvalidVariableName,
					"variable %q has invalid object key %q", name, key)
			}
			if err := validateVariableValue(name, elem); err != nil {
				return err
			}
		}
		return nil

	default:
		return rejectf(KindUnsupportedVariableType,
			"variable %q has unsupported type %T", name, value)
	}
}
