package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslator_Locales(t *testing.T) {
	assert.Equal(t, "Login failed. Please check your email and password.", New("en").T(LoginFailed))
	assert.Equal(t, "Login gagal. Periksa kembali email dan kata sandi Anda.", New("id").T(LoginFailed))
	assert.Equal(t, "id", New("id-ID").Locale())
}

func TestTranslator_Fallbacks(t *testing.T) {
	assert.Equal(t, "en", New("").Locale())
	assert.Equal(t, "en", New("not a locale!").Locale())
	assert.Equal(t, "unknown_key", New("en").T("unknown_key"))
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	for _, tag := range []string{"en", "id"} {
		tr := New(tag)
		for key := range catalog[tr.tag] {
			assert.NotEqual(t, key, tr.T(key), "%s missing %s", tag, key)
		}
	}
	assert.Equal(t, len(catalog[New("en").tag]), len(catalog[New("id").tag]))
}
