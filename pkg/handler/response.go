package handler

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Response renders itself to w.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

type jsonResponse struct {
	status int
	body   any
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSON renders body with status.
func JSON(status int, body any) Response {
	return jsonResponse{status: status, body: body}
}

// ErrorBody is the JSON shape of a failed API call.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Error renders err as an ErrorBody. HTTPErrors keep their code and key;
// anything else becomes a 500 internal-error.
func Error(err error) Response {
	var he HTTPError
	if !errors.As(err, &he) {
		he = ErrInternal
	}
	return jsonResponse{status: he.Code, body: ErrorBody{Error: he.Key}}
}
