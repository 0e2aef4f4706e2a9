package converter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Benny93/fluentgen/internal/codemodel"
)

const (
	getPrefix = "get"
	isPrefix  = "is"
)

// IsValidGetterName reports whether name follows the getX or isX naming
// pattern, ignoring return type and arity.
func IsValidGetterName(name string) bool {
	return hasAccessorPrefix(name, isPrefix) || hasAccessorPrefix(name, getPrefix)
}

// IsStandardGetter reports whether m is named getX, declares a non-void
// return type and takes no parameters.
func IsStandardGetter(m codemodel.Method) bool {
	if m.ParameterCount() != 0 || !hasAccessorPrefix(m.Name(), getPrefix) {
		return false
	}
	rt := m.ReturnType()
	return rt != nil && rt.Kind() != codemodel.KindVoid
}

// IsBooleanGetter reports whether m is named isX, returns primitive boolean
// and takes no parameters.
func IsBooleanGetter(m codemodel.Method) bool {
	if m.ParameterCount() != 0 || !hasAccessorPrefix(m.Name(), isPrefix) {
		return false
	}
	rt := m.ReturnType()
	return rt != nil && rt.Kind() == codemodel.KindPrimitive && rt.CanonicalText() == "boolean"
}

// PropertyNameOf strips the accessor prefix from m's name and lower-cases
// the first remaining character: getName -> name, isActive -> active,
// getURL -> uRL.
func PropertyNameOf(m codemodel.Method) string {
	prefix := getPrefix
	if IsBooleanGetter(m) {
		prefix = isPrefix
	}
	return uncapitalize(strings.TrimPrefix(m.Name(), prefix))
}

// GetterMethodsOf returns the getters declared by class in code-model order.
func GetterMethodsOf(class codemodel.Class) []codemodel.Method {
	var getters []codemodel.Method
	for _, m := range class.Methods() {
		if !hasResolvableReturnType(m) {
			continue
		}
		if IsBooleanGetter(m) || IsStandardGetter(m) {
			getters = append(getters, m)
		}
	}
	return getters
}

// hasResolvableReturnType filters out methods whose return type the code
// model could not determine, typically in incomplete code.
func hasResolvableReturnType(m codemodel.Method) bool {
	return m.ReturnType() != nil
}

func hasAccessorPrefix(name, prefix string) bool {
	if len(name) <= len(prefix) || !strings.HasPrefix(name, prefix) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(name[len(prefix):])
	return unicode.IsUpper(r)
}

func uncapitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
