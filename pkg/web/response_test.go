package web

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestError(t *testing.T) {
	got := Error(errors.New("boom"))

	if got.Error != "boom" {
		t.Errorf(`Error(errors.New("boom")).Error = %q, want "boom"`, got.Error)
	}

	if got.Data != nil {
		t.Errorf("Error(...).Data = %v, want nil", got.Data)
	}
}

func TestGetErrorMsg(t *testing.T) {
	type request struct {
		ID    int32  `validate:"required,min=1"`
		Email string `validate:"email"`
	}

	v := validator.New()

	testCases := []struct {
		name string
		req  request
		want string
	}{
		{
			name: "Required",
			req:  request{Email: "a@b.com"},
			want: "ID field is required",
		},
		{
			name: "Min",
			req:  request{ID: -1, Email: "a@b.com"},
			want: "ID must be at least 1 characters long",
		},
		{
			name: "Email",
			req:  request{ID: 1, Email: "nope"},
			want: "Email must be a valid email",
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			err := v.Struct(tc.req)

			var ve validator.ValidationErrors
			if !errors.As(err, &ve) {
				t.Fatalf("v.Struct(%+v) returned %v, want validator.ValidationErrors", tc.req, err)
			}

			if got := GetErrorMsg(ve); got != tc.want {
				t.Errorf("GetErrorMsg() = %q, want %q", got, tc.want)
			}
		})
	}
}
