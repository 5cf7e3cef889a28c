package render

import (
	"encoding/json"
	"errors"
	"net/http"

	"p2plend/core"

	"github.com/sirupsen/logrus"
)

type H map[string]interface{}

// JSON render with json
func JSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		logrus.WithError(err).Errorln("render json")
	}
}

// Text render with text
func Text(w http.ResponseWriter, t string) {
	w.Header().Set("Content-Type", "application/text")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(t)); err != nil {
		logrus.WithError(err).Errorln("render text")
	}
}

// Error write error
func Error(w http.ResponseWriter, statusCode, errCode int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	enc := json.NewEncoder(w)
	if err := enc.Encode(H{"code": errCode, "msg": err.Error()}); err != nil {
		logrus.WithError(err).Errorln("render error")
	}
}

// BadRequest bad request error
func BadRequest(w http.ResponseWriter, err error) {
	Error(w, http.StatusBadRequest, -1, err)
}

// NotFoundRequest not found request error
func NotFoundRequest(w http.ResponseWriter, err error) {
	Error(w, http.StatusNotFound, -1, err)
}

// Forbidden forbidden error
func Forbidden(w http.ResponseWriter, err error) {
	Error(w, http.StatusForbidden, int(core.ErrPermissionDenied), err)
}

// Err renders engine errors with their code, anything else is an internal
// error
func Err(w http.ResponseWriter, err error) {
	var code core.ErrorCode
	if !errors.As(err, &code) {
		Error(w, http.StatusInternalServerError, -1, err)
		return
	}

	switch code {
	case core.ErrPermissionDenied:
		Error(w, http.StatusForbidden, int(code), err)
	case core.ErrMarketNotCreated:
		Error(w, http.StatusNotFound, int(code), err)
	case core.ErrArithmetic, core.ErrUnknown, core.ErrPoolShortfall, core.ErrReentrantCall:
		Error(w, http.StatusInternalServerError, int(code), err)
	default:
		Error(w, http.StatusBadRequest, int(code), err)
	}
}
