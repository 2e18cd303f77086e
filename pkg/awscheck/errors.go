package awscheck

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
)

// describe turns an SDK error into a short failure reason.
func describe(err error) string {
	slog.Debug("AWS request failed", "error", err)

	var profileErr awsconfig.SharedConfigProfileNotExistError
	if errors.As(err, &profileErr) {
		return "profile not found"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return "not found"
		case http.StatusForbidden:
			return "access forbidden"
		}
	}

	if strings.Contains(err.Error(), "failed to retrieve credentials") {
		return "unable to locate credentials"
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return "unknown reason"
}

// errorCode returns the service error code of err, or "".
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
