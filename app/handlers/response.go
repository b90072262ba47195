package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/openeire/openeire-api/app/helpers"
	"github.com/openeire/openeire-api/app/services"
	"github.com/unrolled/render"
)

func writeSuccess(rnd *render.Render, w http.ResponseWriter, status int, message string, data interface{}) {
	body := map[string]interface{}{
		"status":  "success",
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	rnd.JSON(w, status, body)
}

func writeError(rnd *render.Render, w http.ResponseWriter, status int, message string) {
	rnd.JSON(w, status, map[string]interface{}{
		"status":  "error",
		"message": message,
	})
}

// writeValidationError answers struct validation failures with per-field messages.
func writeValidationError(rnd *render.Render, w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		rnd.JSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":  "error",
			"message": "Request validation failed.",
			"errors":  helpers.FormatValidationErrors(verrs),
		})
		return
	}
	writeError(rnd, w, http.StatusBadRequest, err.Error())
}

func statusForError(err error) int {
	if services.IsClientError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
