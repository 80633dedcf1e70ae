package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/tutor-admin-api/internal/models"
)

// parseFilterValue converts a query string value into the typed value stored for field.
func parseFilterValue(validate *validator.Validate, field models.Field, raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	switch field.Type {
	case models.FieldInt:
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer", field.Name)
		}
		return checkIntEnum(field, value)
	case models.FieldNumber:
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("%s must be a number", field.Name)
		}
		return value, nil
	case models.FieldBool:
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", field.Name)
		}
		return value, nil
	default:
		return coerceString(validate, field, raw)
	}
}

// coerceWriteValue validates a decoded JSON value against field and returns the value to store.
func coerceWriteValue(validate *validator.Validate, field models.Field, value interface{}) (interface{}, error) {
	if value == nil {
		if field.Nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("%s cannot be null", field.Name)
	}
	switch field.Type {
	case models.FieldInt:
		number, ok := jsonNumber(value)
		if !ok || number != math.Trunc(number) || math.Abs(number) > 1<<53 {
			return nil, fmt.Errorf("%s must be an integer", field.Name)
		}
		return checkIntEnum(field, int64(number))
	case models.FieldNumber:
		number, ok := jsonNumber(value)
		if !ok || math.IsNaN(number) || math.IsInf(number, 0) {
			return nil, fmt.Errorf("%s must be a number", field.Name)
		}
		return number, nil
	case models.FieldBool:
		flag, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%s must be a boolean", field.Name)
		}
		return flag, nil
	default:
		text, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a string", field.Name)
		}
		return coerceString(validate, field, text)
	}
}

func coerceString(validate *validator.Validate, field models.Field, value string) (interface{}, error) {
	switch field.Type {
	case models.FieldEnum:
		if !field.AllowsEnum(value) {
			return nil, fmt.Errorf("%s must be one of %s", field.Name, strings.Join(field.Enum, ", "))
		}
		return value, nil
	case models.FieldEmail:
		if err := validate.Var(value, "required,email"); err != nil {
			return nil, fmt.Errorf("%s must be a valid email address", field.Name)
		}
		return strings.ToLower(value), nil
	case models.FieldTime:
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, fmt.Errorf("%s must be an RFC3339 timestamp", field.Name)
		}
		return parsed.UTC(), nil
	}
	if field.Rule != "" {
		if err := validate.Var(value, field.Rule); err != nil {
			return nil, fmt.Errorf("%s is invalid (%s)", field.Name, field.Rule)
		}
	}
	return value, nil
}

func checkIntEnum(field models.Field, value int64) (interface{}, error) {
	if len(field.Enum) > 0 && !field.AllowsEnum(strconv.FormatInt(value, 10)) {
		return nil, fmt.Errorf("%s must be one of %s", field.Name, strings.Join(field.Enum, ", "))
	}
	return value, nil
}

func jsonNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
