package http

import (
	"github.com/beldeveloper/ecomet/internal/app/errtype"
	"github.com/beldeveloper/ecomet/internal/app/logging"
	jsoniter "github.com/json-iterator/go"
	"net/http"
)

var (
	json   = jsoniter.ConfigCompatibleWithStandardLibrary
	logger = logging.GetLogger("http")
)

// ErrorResponse is the body of the failed API response.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Details errtype.Details `json:"details"`
}

// SetDefaultHeaders sets the basic set of headers to the response.
func SetDefaultHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Accept,Authorization,Accept-Language,Content-Type,Content-Language")
}

// apiError renders the error with the status of its class. Server side errors are logged
// and don't expose the internals.
func apiError(w http.ResponseWriter, err error) {
	kind := errtype.KindOf(err)
	res := ErrorResponse{Error: err.Error(), Code: kind.Code, Details: errtype.DetailsOf(err)}
	if kind.Status >= http.StatusInternalServerError {
		logger.Errorf("handled exception: %s - %v", kind.Code, err)
		res.Error = http.StatusText(kind.Status)
		if kind.Err != nil {
			res.Error = kind.Err.Error()
		}
	}
	writeJSON(w, kind.Status, res)
}

func apiSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	SetDefaultHeaders(w)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("encode response: %v", err)
	}
}
