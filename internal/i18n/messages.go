package i18n

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// Message identifiers for user-facing text. Stage labels and error messages
// share one catalog so the CLI renders everything through the same lookup.
const (
	MsgStageExtracting   = "stage.extracting_frame"
	MsgStageRemovingMark = "stage.removing_watermark"
	MsgStageGenerating   = "stage.generating_video"
	MsgSucceeded         = "workflow.succeeded"

	MsgErrUnsupportedMedia  = "error.unsupported_media"
	MsgErrMissingAPIKey     = "error.missing_api_key"
	MsgErrInvalidCredential = "error.invalid_credential"
	MsgErrMediaDecode       = "error.media_decode"
	MsgErrImageProcessing   = "error.image_processing"
	MsgErrNoEditResult      = "error.no_edit_result"
	MsgErrDownload          = "error.download"
	MsgErrMissingResult     = "error.missing_result"
	MsgErrPollTimeout       = "error.poll_timeout"
	MsgErrGeneric           = "error.generic"
)

var catalog = map[string]map[string]string{
	"en": {
		MsgStageExtracting:   "Extracting first frame...",
		MsgStageRemovingMark: "Removing watermark...",
		MsgStageGenerating:   "Generating video (this can take a few minutes)...",
		MsgSucceeded:         "Done. Result saved.",

		MsgErrUnsupportedMedia:  "That file type is not supported for this mode. Please pick another file.",
		MsgErrMissingAPIKey:     "No API key is configured. Set GEMINI_API_KEY and try again.",
		MsgErrInvalidCredential: "The API key was rejected. Please select a valid key and retry.",
		MsgErrMediaDecode:       "The video could not be decoded. Try a different file.",
		MsgErrImageProcessing:   "The image edit failed. Please try again.",
		MsgErrNoEditResult:      "The service returned no edited image. Please try again.",
		MsgErrDownload:          "Downloading the generated video failed. Please try again.",
		MsgErrMissingResult:     "The generation job finished without a result. Please try again.",
		MsgErrPollTimeout:       "The generation job took too long. Please try again later.",
		MsgErrGeneric:           "Something went wrong. Please try again.",
	},
	"id": {
		MsgStageExtracting:   "Mengekstrak frame pertama...",
		MsgStageRemovingMark: "Menghapus watermark...",
		MsgStageGenerating:   "Membuat video (bisa memakan beberapa menit)...",
		MsgSucceeded:         "Selesai. Hasil tersimpan.",

		MsgErrUnsupportedMedia:  "Tipe file itu tidak didukung untuk mode ini. Silakan pilih file lain.",
		MsgErrMissingAPIKey:     "API key belum dikonfigurasi. Atur GEMINI_API_KEY dan coba lagi.",
		MsgErrInvalidCredential: "API key ditolak. Silakan pilih key yang valid lalu coba lagi.",
		MsgErrMediaDecode:       "Video tidak dapat didekode. Coba file lain.",
		MsgErrImageProcessing:   "Pengeditan gambar gagal. Silakan coba lagi.",
		MsgErrNoEditResult:      "Layanan tidak mengembalikan gambar hasil edit. Silakan coba lagi.",
		MsgErrDownload:          "Pengunduhan video hasil gagal. Silakan coba lagi.",
		MsgErrMissingResult:     "Proses pembuatan selesai tanpa hasil. Silakan coba lagi.",
		MsgErrPollTimeout:       "Proses pembuatan terlalu lama. Silakan coba lagi nanti.",
		MsgErrGeneric:           "Terjadi kesalahan. Silakan coba lagi.",
	},
}

var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Indonesian,
})

// ResolveLocale normalizes a user-provided locale to a supported catalog
// language. Empty input falls back to the process environment (LC_ALL, then
// LANG), and anything unrecognized resolves to English.
func ResolveLocale(locale string) string {
	if strings.TrimSpace(locale) == "" {
		locale = envLocale()
	}
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return "en"
	}
	// LANG-style values carry an encoding suffix (id_ID.UTF-8).
	if i := strings.IndexByte(locale, '.'); i > 0 {
		locale = locale[:i]
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return "en"
	}
	_, index, _ := matcher.Match(tag)
	if index == 1 {
		return "id"
	}
	return "en"
}

func envLocale() string {
	for _, key := range []string{"LC_ALL", "LANG"} {
		if v := os.Getenv(key); v != "" && !strings.EqualFold(v, "C") && !strings.EqualFold(v, "POSIX") {
			return v
		}
	}
	return ""
}

// T returns the catalog text for id in the given locale, falling back to
// English and finally to the raw identifier.
func T(locale, id string) string {
	if msgs, ok := catalog[locale]; ok {
		if msg, ok := msgs[id]; ok {
			return msg
		}
	}
	if msg, ok := catalog["en"][id]; ok {
		return msg
	}
	return id
}
