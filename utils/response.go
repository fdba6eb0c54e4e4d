package utils

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/yamcs/yamcs-client-go/model"
)

const maxHTTPResponseReadBytes = 64 * 1024

// ConvertHTTPToError maps a non-2xx response onto an *model.APIError. The body
// is consumed and closed. It returns nil for 2xx responses, which are left
// untouched.
func ConvertHTTPToError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()

	apiErr := &model.APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPResponseReadBytes))
	if err == nil && len(body) > 0 {
		var exc model.ExceptionMessage
		if json.Unmarshal(body, &exc) == nil {
			apiErr.Message = exc.Msg
			apiErr.Type = exc.Type
		}
	}
	if apiErr.Message == "" && resp.StatusCode != http.StatusUnauthorized {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
