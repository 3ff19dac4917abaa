package cfgapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// Requester performs raw API calls. *Client implements it.
type Requester interface {
	Request(ctx context.Context, method, path string, opts *RequestOptions) (*Response, error)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func responseValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Fetch performs a request and decodes the response into T
func Fetch[T any](ctx context.Context, r Requester, method, path string, opts *RequestOptions) (*T, error) {
	resp, err := r.Request(ctx, method, path, opts)
	if err != nil {
		return nil, err
	}
	return Decode[T](resp.Body)
}

// Decode parses body as JSON into T and checks its validate tags. A body that
// does not match T is a ValidationError listing the offending fields. An
// empty body, as sent with 204 No Content, is the zero T and is validated
// like any other.
func Decode[T any](body []byte) (*T, error) {
	var out T
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, types.NewValidationError("response body does not match the expected shape", nil, err)
		}
	}
	if err := validateValue(reflect.ValueOf(out)); err != nil {
		return nil, err
	}
	return &out, nil
}

func validateValue(v reflect.Value) error {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		return toValidationError(responseValidator().Struct(v.Interface()))
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := validateValue(v.Index(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewValidationError("response failed validation", nil, err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Namespace()
		if i := strings.Index(name, "."); i >= 0 {
			name = name[i+1:]
		}
		fields = append(fields, FieldError{
			Field:   name,
			Rule:    fe.Tag(),
			Message: fe.Error(),
		})
	}
	return types.NewValidationError("response failed validation", fields, err)
}
