// Package i18n provides the localized fallback messages shown when the API
// does not supply one.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys.
const (
	LoginFailed          = "login_failed"
	GoogleLoginFailed    = "google_login_failed"
	RegisterFailed       = "register_failed"
	ForgotPasswordFailed = "forgot_password_failed"
	ResetPasswordFailed  = "reset_password_failed"
	ProfileFailed        = "profile_failed"
	SessionExpired       = "session_expired"
	UploadFailed         = "upload_failed"
	NoTokenInResponse    = "no_token_in_response"
)

var catalog = map[language.Tag]map[string]string{
	language.English: {
		LoginFailed:          "Login failed. Please check your email and password.",
		GoogleLoginFailed:    "Google sign-in failed. Please try again.",
		RegisterFailed:       "Registration failed. Please try again.",
		ForgotPasswordFailed: "Could not send the password reset email.",
		ResetPasswordFailed:  "Could not reset your password. The link may have expired.",
		ProfileFailed:        "Could not load your profile.",
		SessionExpired:       "Your session has expired. Please log in again.",
		UploadFailed:         "Image upload failed.",
		NoTokenInResponse:    "The server did not return a session token.",
	},
	language.Indonesian: {
		LoginFailed:          "Login gagal. Periksa kembali email dan kata sandi Anda.",
		GoogleLoginFailed:    "Login dengan Google gagal. Silakan coba lagi.",
		RegisterFailed:       "Pendaftaran gagal. Silakan coba lagi.",
		ForgotPasswordFailed: "Gagal mengirim email reset kata sandi.",
		ResetPasswordFailed:  "Gagal mereset kata sandi. Tautan mungkin sudah kedaluwarsa.",
		ProfileFailed:        "Gagal memuat profil Anda.",
		SessionExpired:       "Sesi Anda telah berakhir. Silakan login kembali.",
		UploadFailed:         "Unggah gambar gagal.",
		NoTokenInResponse:    "Server tidak mengembalikan token sesi.",
	},
}

var matcher language.Matcher

func init() {
	tags := []language.Tag{language.English, language.Indonesian}
	for _, tag := range tags {
		for key, msg := range catalog[tag] {
			_ = message.SetString(tag, key, msg)
		}
	}
	matcher = language.NewMatcher(tags)
}

// Translator renders messages for one locale.
type Translator struct {
	tag language.Tag
	p   *message.Printer
}

// New returns a translator for locale (e.g. "id", "en-US"); unknown locales fall back to English.
func New(locale string) *Translator {
	tag := language.English
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			_, idx, conf := matcher.Match(parsed)
			if conf != language.No {
				tag = []language.Tag{language.English, language.Indonesian}[idx]
			}
		}
	}
	return &Translator{tag: tag, p: message.NewPrinter(tag)}
}

func (t *Translator) Locale() string { return t.tag.String() }

// T returns the message for key, or key itself when the catalog has no entry.
func (t *Translator) T(key string) string {
	if _, ok := catalog[t.tag][key]; !ok {
		return key
	}
	return t.p.Sprintf(key)
}
