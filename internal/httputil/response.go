package httputil

import (
	"encoding/json"
	"net/http"
)

type ErrorBody struct {
	Error string `json:"error"`
}

// FieldErrors maps a form field name to its validation messages. The key
// "__all__" carries errors that do not belong to a single field.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

type FormErrorBody struct {
	Error  string      `json:"error"`
	Fields FieldErrors `json:"fields"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Error: message})
}

func WriteFormErrors(w http.ResponseWriter, fields FieldErrors) {
	WriteJSON(w, http.StatusBadRequest, FormErrorBody{Error: "invalid form", Fields: fields})
}
