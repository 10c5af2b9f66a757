package dto

import (
	"strings"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       SignupRequest
		badFields []string
	}{
		{name: "valid", req: SignupRequest{Username: "alice", Password: "pw", Email: "a@x.io"}},
		{name: "empty", req: SignupRequest{}, badFields: []string{"username", "password", "email"}},
		{name: "bad email", req: SignupRequest{Username: "alice", Password: "pw", Email: "not-an-email"}, badFields: []string{"email"}},
		{name: "password over bcrypt limit", req: SignupRequest{Username: "alice", Password: strings.Repeat("p", 73), Email: "a@x.io"}, badFields: []string{"password"}},
		{name: "long username", req: SignupRequest{Username: strings.Repeat("u", 51), Password: "pw", Email: "a@x.io"}, badFields: []string{"username"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if len(tc.badFields) == 0 {
				assert.NoError(t, err)
				return
			}
			var fieldErrs validation.Errors
			require.ErrorAs(t, err, &fieldErrs)
			assert.Len(t, fieldErrs, len(tc.badFields))
			for _, f := range tc.badFields {
				assert.Contains(t, fieldErrs, f)
			}
		})
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	assert.NoError(t, LoginRequest{Username: "alice", Password: "pw"}.Validate())

	var fieldErrs validation.Errors
	require.ErrorAs(t, LoginRequest{Username: "alice"}.Validate(), &fieldErrs)
	assert.Contains(t, fieldErrs, "password")
	assert.NotContains(t, fieldErrs, "username")
}
