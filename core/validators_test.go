package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	type form struct {
		Username string `json:"username" validate:"required,alphanum_"`
		Label    string `json:"label" validate:"notblank"`
	}

	tests := []struct {
		name string
		form form
		want map[string]string
	}{
		{name: "valid", form: form{Username: "desk_01", Label: "x"}},
		{name: "required", form: form{Label: "x"}, want: map[string]string{"username": "this field is required"}},
		{name: "space", form: form{Username: "desk 01", Label: "x"}, want: map[string]string{"username": alphaNumUnderText}},
		{name: "dash", form: form{Username: "desk-01", Label: "x"}, want: map[string]string{"username": alphaNumUnderText}},
		{name: "blank", form: form{Username: "desk", Label: "  "}, want: map[string]string{"label": notBlankText}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.form)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "%v", err)
			got := make(map[string]string)
			for _, fe := range vErrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
