package shared

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answerBody struct {
	Outcome string `json:"outcome" validate:"required,oneof=again hard good easy"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantErr     error
		errContains string
		want        string
	}{
		{name: "valid json", body: `{"outcome":"good"}`, want: "good"},
		{name: "invalid json", body: `{"outcome":"good",}`, errContains: "invalid character"},
		{name: "unknown field", body: `{"outcome":"good","extra":1}`, errContains: "unknown field"},
		{name: "empty body", body: "", wantErr: ErrEmptyBody},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tc.body))
			var got answerBody
			err := DecodeJSON(req, &got)

			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.errContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errContains)
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.want, got.Outcome)
			}
		})
	}
}

func TestDecodeJSONNilBody(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Body = nil
	assert.ErrorIs(t, DecodeJSON(req, &answerBody{}), ErrEmptyBody)
}

type selfValidating struct{ ok bool }

func (s selfValidating) Validate() error {
	if !s.ok {
		return errors.New("not ok")
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(&answerBody{Outcome: "easy"}))

	err := ValidateRequest(&answerBody{Outcome: "perfect"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "oneof", verrs[0].Tag())

	assert.NoError(t, ValidateRequest(selfValidating{ok: true}))
	assert.EqualError(t, ValidateRequest(selfValidating{}), "not ok")
}
