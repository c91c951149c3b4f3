package logger

import (
	"strings"
)

// Standard field key constants for structured logging.
const (
	FieldService        = "service"
	FieldComponent      = "component"
	FieldRequestID      = "request_id"
	FieldPipeline       = "pipeline"
	FieldOperator       = "operator"
	FieldShapes         = "shapes"
	FieldModel          = "model"
	FieldSubscriptionID = "subscription_id"
	FieldNotification   = "notification"
	FieldState          = "state"
	FieldStatus         = "status"
	FieldError          = "error"
	FieldDuration       = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("rewritten", logger.Fields("pipeline", "avg", "calls", 3))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// OperatorFields describes an operator signature.
func OperatorFields(model, name string, shapes []string) map[string]interface{} {
	return map[string]interface{}{
		FieldModel:    model,
		FieldOperator: name,
		FieldShapes:   strings.Join(shapes, ", "),
	}
}

// MergeWithError adds an error field to an existing map.
func MergeWithError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldError] = err.Error()
	return fields
}
