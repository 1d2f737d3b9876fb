package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/jwt"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/response"
)

// Context keys written by middleware.JWTAuth
const (
	CtxTeacherID = "teacher_id"
	CtxClaims    = "claims"
)

// MustGetTeacherID reads the authenticated teacher id. When the auth
// middleware did not run it writes a 401 and returns false; the caller
// should return immediately.
func MustGetTeacherID(c *gin.Context) (string, bool) {
	v, exists := c.Get(CtxTeacherID)
	if !exists {
		response.Unauthorized(c, 10002, "Belum login")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "Belum login")
		return "", false
	}
	return s, true
}

// MustGetClaims reads the parsed access token claims
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(CtxClaims)
	if !exists {
		response.Unauthorized(c, 10002, "Belum login")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "Belum login")
		return nil, false
	}
	return claims, true
}

// bindError 400 for a request that failed binding; the binder's message
// goes into details
func bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "Ukuran body melebihi batas")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "Parameter tidak valid", err.Error())
}
