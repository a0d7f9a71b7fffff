package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Name    string `json:"name" validate:"notblank"`
	Email   string `json:"email" validate:"required,email"`
	Handle  string `json:"handle" validate:"min=3,alphanum_"`
	Age     int    `json:"age" validate:"min=16"`
	Website string `json:"website" validate:"omitempty,uri"`
}

func TestTranslateVI(t *testing.T) {
	err := Validate.Struct(signupForm{Name: "  ", Email: "", Handle: "ab", Age: 12, Website: "not a uri"})
	require.Error(t, err)

	got := make(map[string]string)
	for _, fe := range err.(validator.ValidationErrors) {
		got[fe.Field()] = TranslateVI(fe)
	}
	assert.Equal(t, map[string]string{
		"name":   "Trường này không được để trống",
		"email":  "Trường này là bắt buộc",
		"handle": "Phải có ít nhất 3 ký tự",
		"age":    "Giá trị tối thiểu là 16",
		// no Vietnamese text for uri, the English one is used
		"website": "website must be a valid URI",
	}, got)
}

func TestTranslateTagVI(t *testing.T) {
	msg, ok := TranslateTagVI(notBlankTag)
	assert.True(t, ok)
	assert.Equal(t, "Trường này không được để trống", msg)

	_, ok = TranslateTagVI("")
	assert.False(t, ok)
	_, ok = TranslateTagVI("no-such-tag")
	assert.False(t, ok)
}

func TestViTexts_registered(t *testing.T) {
	for tag := range viTexts {
		msg, err := ViTranslator.T(tag, "5")
		if assert.NoError(t, err, tag) {
			assert.NotContains(t, msg, "{", tag)
		}
	}
}
