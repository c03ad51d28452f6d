package http

import (
	"bytes"
	"encoding/json"
	ers "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/docshistory/histories-backend/internal/logging"
	"github.com/docshistory/histories-backend/internal/utils"
	"github.com/docshistory/histories-backend/internal/utils/errors"
	"github.com/golang/gddo/httputil/header"
	rpccode "google.golang.org/genproto/googleapis/rpc/code"
)

type requestWrapper struct {
	Data json.RawMessage `json:"data"`
}

type responseWrapper struct {
	Data interface{} `json:"data"`
}

type errorBody struct {
	Status  rpccode.Code `json:"status"`
	Message string       `json:"message"`
}

type errorWrapper struct {
	Error errorBody `json:"error"`
}

// DecodeJSONBody decodes request body in format of Firebase callable functions, i.e. wrapped in 'data' field.
// Numbers in untyped fields are decoded as json.Number.
// based on https://www.alexedwards.net/blog/how-to-properly-parse-a-json-request-body
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	value, _ := header.ParseValueAndParams(r.Header, "Content-Type")
	if value != "application/json" {
		msg := "Content-Type header is not application/json"
		return &errors.MalformedRequestError{Status: rpccode.Code_INVALID_ARGUMENT, Msg: msg}
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	dec := json.NewDecoder(r.Body)

	var wrapper requestWrapper
	if err := dec.Decode(&wrapper); err != nil {
		return decodeError(err)
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		msg := "Request body must only contain a single JSON object"
		return &errors.MalformedRequestError{Status: rpccode.Code_INVALID_ARGUMENT, Msg: msg}
	}

	if len(wrapper.Data) == 0 {
		msg := "Request body must be wrapped in 'data' field"
		return &errors.MalformedRequestError{Status: rpccode.Code_INVALID_ARGUMENT, Msg: msg}
	}

	inner := json.NewDecoder(bytes.NewReader(wrapper.Data))
	inner.DisallowUnknownFields()
	inner.UseNumber()

	if err := inner.Decode(dst); err != nil {
		return decodeError(err)
	}

	if err := utils.Validate.Struct(dst); err != nil {
		msg := fmt.Sprintf("Validation of the request has failed: %v", err.Error())
		return &errors.MalformedRequestError{Status: rpccode.Code_INVALID_ARGUMENT, Msg: msg}
	}

	return nil
}

func decodeError(err error) error {
	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError

	switch {
	case ers.As(err, &syntaxError):
		msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
		return &errors.MalformedRequestError{Status: rpccode.Code_INVALID_ARGUMENT, Msg: msg}

	case ers.Is(err, io.ErrUnexpectedEOF):
		msg := "Request body contains badly-formed JSON"
		return &errors.MalformedRequestError{Status: rpccode.Code_INVALID_ARGUMENT, Msg: msg}

	case ers.As(err, &unmarshalTypeError):
		msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
		return &errors.MalformedRequestError{Status: rpccode.Code_INVALID_ARGUMENT, Msg: msg}

	case strings.HasPrefix(err.Error(), "json: unknown field "):
		fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
		msg := fmt.Sprintf("Request body contains unknown field %s", fieldName)
		return &errors.MalformedRequestError{Status: rpccode.Code_INVALID_ARGUMENT, Msg: msg}

	case ers.Is(err, io.EOF):
		msg := "Request body must not be empty"
		return &errors.MalformedRequestError{Status: rpccode.Code_INVALID_ARGUMENT, Msg: msg}

	case err.Error() == "http: request body too large":
		msg := "Request body must not be larger than 1MB"
		return &errors.MalformedRequestError{Status: rpccode.Code_OUT_OF_RANGE, Msg: msg}

	default:
		return &errors.MalformedRequestError{Status: rpccode.Code_INVALID_ARGUMENT, Msg: err.Error()}
	}
}

// DecodeJSONOrReportError decodes the request body and sends error response when it fails.
func DecodeJSONOrReportError(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := DecodeJSONBody(w, r, dst); err != nil {
		logging.FromContext(r.Context()).Debugf("Could not decode request: %v", err)
		SendErrorResponse(w, r, err)
		return false
	}
	return true
}

// SendResponse sends the payload wrapped in 'data' field.
func SendResponse(w http.ResponseWriter, r *http.Request, payload interface{}) {
	sendJSON(w, r, http.StatusOK, responseWrapper{Data: payload})
}

// SendErrorResponse sends the error in format of Firebase callable functions.
func SendErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var historyError errors.HistoryError
	if !ers.As(err, &historyError) {
		logging.FromContext(r.Context()).Warnf("Unknown error: %v", err)
		historyError = &errors.UnknownError{Msg: "Unknown error"}
	}

	sendJSON(w, r, httpStatus(historyError.Code()), errorWrapper{Error: errorBody{
		Status:  historyError.Code(),
		Message: historyError.Error(),
	}})
}

func sendJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	js, err := json.Marshal(payload)
	if err != nil {
		logging.FromContext(r.Context()).Errorf("Could not encode response: %v", err)
		http.Error(w, "Could not encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(js); err != nil {
		logging.FromContext(r.Context()).Warnf("Could not write response: %v", err)
	}
}

func httpStatus(code rpccode.Code) int {
	switch code {
	case rpccode.Code_OK:
		return http.StatusOK
	case rpccode.Code_INVALID_ARGUMENT, rpccode.Code_FAILED_PRECONDITION, rpccode.Code_OUT_OF_RANGE:
		return http.StatusBadRequest
	case rpccode.Code_NOT_FOUND:
		return http.StatusNotFound
	case rpccode.Code_UNIMPLEMENTED:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
