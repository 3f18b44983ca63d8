package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"neuronote/pkg/common"
	pkgerrors "neuronote/pkg/errors"
)

// DefaultMaxBodyBytes bounds JSON request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// as narrows a bus result to the type its handler returns.
func as[T any](v interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, pkgerrors.NewInternalError(fmt.Sprintf("unexpected result type %T", v))
	}
	return typed, nil
}

// decodeBody reads a bounded JSON body. An empty body is accepted when
// optional is set and leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64, optional bool) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	err := common.DecodeJSONBody(w, r, v, maxBytes)
	if err == nil {
		return nil
	}
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return pkgerrors.NewValidationError("Request body too large")
	}
	return pkgerrors.NewValidationError("Invalid request body")
}
