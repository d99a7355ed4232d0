package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-inventory/internal/core/domain"
	"github.com/rl1809/sales-inventory/internal/core/service"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// bindJSON decodes the request body into dst. Fields carrying the wrong JSON
// type are reported as a validation error, merged with the rules failed by the
// remaining fields. Any other decode failure is INVALID_INPUT.
func (h *HTTPHandler) bindJSON(c *gin.Context, dst interface{}) bool {
	body, err := c.GetRawData()
	if err == nil {
		err = json.Unmarshal(body, dst)
	}
	if err == nil {
		return true
	}

	fields, rest := fieldTypeErrors(body, dst)
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  CodeInvalidInput,
		})
		return false
	}

	target := reflect.ValueOf(dst).Elem()
	target.Set(reflect.Zero(target.Type()))
	if json.Unmarshal(rest, dst) == nil {
		var verr *domain.ValidationError
		if errors.As(service.Validate(dst), &verr) {
			for name, msg := range verr.Fields {
				if _, ok := fields[name]; !ok {
					fields[name] = msg
				}
			}
		}
	}

	h.writeError(c, &domain.ValidationError{Fields: fields})
	return false
}

// fieldTypeErrors decodes each known field of dst on its own and returns a
// message per field whose JSON value does not fit its Go type, along with the
// body re-encoded without those fields. It returns nil when body is not a
// JSON object.
func fieldTypeErrors(body []byte, dst interface{}) (map[string]string, []byte) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil
	}

	t := reflect.TypeOf(dst).Elem()
	fields := make(map[string]string)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		value, ok := raw[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, reflect.New(f.Type).Interface()); err != nil {
			fields[name] = typeMessage(f.Type)
			delete(raw, name)
		}
	}

	rest, err := json.Marshal(raw)
	if err != nil {
		return fields, nil
	}
	return fields, rest
}

func typeMessage(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == decimalType {
		return "must be a number"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "must be an integer"
	case reflect.String:
		return "must be a string"
	default:
		return "has an invalid type"
	}
}
