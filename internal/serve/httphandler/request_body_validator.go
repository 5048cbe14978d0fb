package httphandler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/playvault/marketplace-backend/internal/serve/httperror"
	"github.com/playvault/marketplace-backend/internal/validators"
)

const maxBodySize int64 = 65_536

func DecodeJSONAndValidate(ctx context.Context, req *http.Request, reqBody interface{}) *httperror.ErrorResponse {
	if err := json.NewDecoder(http.MaxBytesReader(nil, req.Body, maxBodySize)).Decode(reqBody); err != nil {
		return httperror.BadRequest("Invalid request body.", nil)
	}

	return ValidateRequestBody(ctx, reqBody)
}

func ValidateRequestBody(ctx context.Context, reqBody interface{}) *httperror.ErrorResponse {
	val := validators.NewValidator()
	if err := val.StructCtx(ctx, reqBody); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			extras := validators.ParseValidationError(vErrs)
			return httperror.BadRequest("Validation error.", extras)
		}
		return httperror.InternalServerError(ctx, "", err, nil, nil)
	}
	return nil
}

func renderJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
