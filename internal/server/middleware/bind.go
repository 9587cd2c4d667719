package middleware

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/cstockton/go-conv"
	"github.com/labstack/echo/v4"
)

// BindAndValidate bind request context and validate request struct.
// Bind includes request body, params, query, headers and the authenticated user.
// Validate request struct, response bad request with error message if the request is invalid.
func BindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}

	if err := bindHeader(c.Request().Header, req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := bindUser(c, req); err != nil {
		return err
	}

	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return nil
}

// bindUser fills fields tagged `user:"id"` or `user:"email"` from the user
// resolved by Auth. Public routes leave them empty.
func bindUser(c echo.Context, dst interface{}) error {
	user := CurrentUser(c)
	if user == nil {
		return nil
	}

	getValueFn := func(tagValue string) (interface{}, error) {
		switch tagValue {
		case "id":
			return user.ID.Hex(), nil
		case "email":
			return user.Email, nil
		case "username":
			return user.Username, nil
		}
		return nil, fmt.Errorf("binding user field %s is not supported", tagValue)
	}

	return bindStruct(dst, "user", getValueFn)
}

// bindHeader decode http header to struct by tag `header:"<header_name>"`
// out must be a pointer to a struct
func bindHeader(header http.Header, dst interface{}) error {
	getValueFn := func(tagValue string) (interface{}, error) {
		return header.Get(tagValue), nil
	}

	return bindStruct(dst, "header", getValueFn)
}

// bindStruct decode to struct by custom tag `tagName:"tagValue"`
// dst must be a pointer to a struct
func bindStruct(dst interface{}, tagName string, getValueFn func(tagValue string) (interface{}, error)) error {
	ptr := reflect.ValueOf(dst)
	if ptr.Kind() != reflect.Ptr {
		return fmt.Errorf("non-pointer passed to Unmarshal")
	}

	indirect := reflect.Indirect(ptr)
	structType := indirect.Type()

	numField := structType.NumField()
	for i := 0; i < numField; i++ {
		structField := structType.Field(i)
		field := indirect.Field(i)
		tagValue := structField.Tag.Get(tagName)
		if tagValue == "" && structField.Anonymous && structField.IsExported() && field.Kind() == reflect.Struct {
			if err := bindStruct(field.Addr().Interface(), tagName, getValueFn); err != nil {
				return err
			}
			continue
		}
		if tagValue == "-" || tagValue == "" {
			continue
		}
		value, err := getValueFn(tagValue)
		if err != nil {
			return err
		}
		if err := conv.Infer(field, value); err != nil {
			return fmt.Errorf("cannot parse %s.%s as %s from: %#v / %s",
				structType.Name(), structField.Name, field.Type(), value, err)
		}
	}

	return nil
}
