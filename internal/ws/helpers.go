package ws

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var groupNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidGroupName reports whether name is accepted at the websocket and HTTP
// boundary. The hub itself accepts any non-empty name.
func ValidGroupName(name string) bool {
	return groupNamePattern.MatchString(name)
}

var registerOnce sync.Once

// RegisterValidators adds the "groupname" tag to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("groupname", func(fl validator.FieldLevel) bool {
				return ValidGroupName(fl.Field().String())
			})
		}
	})
}
