package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/vi"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator // en, used by the JSON API

	// ViTranslator backs the server rendered pages; tags it has no text for fall back to Translator.
	ViTranslator ut.Translator

	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"

	// {0} is the tag param. A "-string" suffix applies to string fields only.
	viTexts = map[string]string{
		requiredTag:      "Trường này là bắt buộc",
		requiredWithTag:  "Trường này là bắt buộc",
		notBlankTag:      "Trường này không được để trống",
		alphaNumUnderTag: "Chỉ được dùng chữ cái, chữ số và dấu gạch dưới",
		"email":          "Địa chỉ email không hợp lệ",
		"url":            "Đường dẫn không hợp lệ",
		"numeric":        "Chỉ được nhập chữ số",
		"eqfield":        "Giá trị nhập lại không khớp",
		"ltfield":        "Giá trị phải nhỏ hơn {0}",
		"len-string":     "Phải có đúng {0} ký tự",
		"len":            "Phải có đúng {0} phần tử",
		"min-string":     "Phải có ít nhất {0} ký tự",
		"min":            "Giá trị tối thiểu là {0}",
		"max-string":     "Không được vượt quá {0} ký tự",
		"max":            "Giá trị tối đa là {0}",
	}
)

// Instantiate the validator for use.
func init() {
	Validate = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en, vi.New())
	Translator, _ = uni.GetTranslator("en")
	ViTranslator, _ = uni.GetTranslator("vi")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)
	for tag, text := range viTexts {
		RegisterVietnameseText(tag, text)
	}

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = Validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	RegisterCustomTranslation(alphaNumUnderTag, alphaNumUnderText)

	_ = Validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(notBlankTag, notBlankText)

	RegisterCustomTranslation(requiredTag, requiredText, true)
	RegisterCustomTranslation(requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = Validate.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// RegisterVietnameseText sets the Vietnamese message for a validation tag; text may only use {0}, the tag param.
// It panics on a malformed text, all registrations run from init.
func RegisterVietnameseText(tag, text string) {
	if err := ViTranslator.Add(tag, text, true); err != nil {
		panic(errors.Wrapf(err, "registering vietnamese text for %q", tag))
	}
}

// TranslateVI returns the Vietnamese message for fe, or the English one when none is registered.
func TranslateVI(fe validator.FieldError) string {
	if fe.Kind() == reflect.String {
		if msg, err := ViTranslator.T(fe.Tag()+"-string", fe.Param()); err == nil {
			return msg
		}
	}
	if msg, err := ViTranslator.T(fe.Tag(), fe.Param()); err == nil {
		return msg
	}
	return fe.Translate(Translator)
}

// TranslateTagVI looks up the Vietnamese message of a tag reported outside of the validator.
func TranslateTagVI(tag string) (string, bool) {
	if tag == "" {
		return "", false
	}
	msg, err := ViTranslator.T(tag, "")
	return msg, err == nil
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}
