package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/ezanapp/minaret/internal/model"
)

// is returned when device id/secret don’t match.
var ErrInvalidCredentials = errors.New("invalid device id or secret")

// uses bcrypt to hash a plaintext device secret.
func HashSecret(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

// compares a bcrypt hash with the plaintext.
func CheckSecret(hash, plain string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	return err == nil
}

// retrieves *model.Device from Gin context (after JWTMiddleware has run).
func GetCurrentDevice(c *gin.Context) (*model.Device, bool) {
	d, exists := c.Get("currentDevice")
	if !exists {
		return nil, false
	}
	device, ok := d.(*model.Device)
	return device, ok
}
