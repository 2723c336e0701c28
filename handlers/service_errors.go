package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/llm-router/services"
	"github.com/upb/llm-router/utils"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var details map[string]interface{}
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		details = domainErr.Details
	}

	switch services.TypeOf(err) {
	case services.ErrorTypeInvalidConfig, services.ErrorTypeMalformedRequest:
		writeOrLog(utils.WriteBadRequest(w, err.Error(), details), logger)

	case services.ErrorTypeAuthentication:
		writeOrLog(utils.WriteUnauthorized(w, err.Error()), logger)

	case services.ErrorTypeRateLimited, services.ErrorTypeBudgetExceeded:
		writeOrLog(utils.WriteTooManyRequests(w, err.Error(), details), logger)

	case services.ErrorTypeNoProvider, services.ErrorTypeProviderUnavailable:
		writeOrLog(utils.WriteServiceUnavailable(w, err.Error(), details), logger)

	case services.ErrorTypeAllProvidersFailed, services.ErrorTypeTransientNetwork:
		writeOrLog(utils.WriteBadGateway(w, err.Error(), details), logger)

	case services.ErrorTypeTimeout:
		writeOrLog(utils.WriteGatewayTimeout(w, err.Error()), logger)

	default:
		logger.Error("internal server error", zap.Error(err))
		writeOrLog(utils.WriteInternalServerError(w, "An internal error occurred"), logger)
	}
}

// HandleValidationError maps request validation failures to a 400 with
// per-field details.
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validationErr *utils.ValidationError
	if errors.As(err, &validationErr) {
		writeOrLog(utils.WriteBadRequest(w, validationErr.Message, validationErr.FieldDetails()), logger)
		return
	}
	writeOrLog(utils.WriteBadRequest(w, err.Error(), nil), logger)
}

func writeOrLog(err error, logger *zap.Logger) {
	if err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}
