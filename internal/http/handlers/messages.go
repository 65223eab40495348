package handlers

const (
	codeInvalidInput = "invalid_input"
	codeDecode       = "decode_error"
	codeUnauthorized = "unauthorized"
	codeNotFound     = "not_found"
	codeBusy         = "busy"
	codeQuota        = "quota_exceeded"
	codeTimeout      = "timeout"
	codeNoImage      = "no_image"
	codeProvider     = "provider_failure"
	codeUnavailable  = "unavailable"
	codeInternal     = "internal"
)

var messages = map[string]map[string]string{
	"en": {
		codeInvalidInput: "Some required information is missing or invalid. Check your photo and garments and try again.",
		codeDecode:       "One of the images could not be read. Please upload a JPEG, PNG or WebP file.",
		codeUnauthorized: "Please sign in to continue.",
		codeNotFound:     "We could not find that item.",
		codeBusy:         "A try-on is already in progress. Please wait for it to finish.",
		codeQuota:        "The image service is busy right now. Please wait a moment and try again.",
		codeTimeout:      "The image service took too long to respond. Please try again.",
		codeNoImage:      "The image service did not return a picture. Please try again.",
		codeProvider:     "The image service failed to process your request. Please try again.",
		codeUnavailable:  "This feature is not available right now.",
		codeInternal:     "Something went wrong. Please try again.",
	},
	"id": {
		codeInvalidInput: "Ada data yang kurang atau tidak valid. Periksa foto dan pakaian Anda lalu coba lagi.",
		codeDecode:       "Salah satu gambar tidak dapat dibaca. Unggah file JPEG, PNG, atau WebP.",
		codeUnauthorized: "Silakan masuk untuk melanjutkan.",
		codeNotFound:     "Item tidak ditemukan.",
		codeBusy:         "Proses coba pakaian sedang berjalan. Tunggu hingga selesai.",
		codeQuota:        "Layanan gambar sedang sibuk. Tunggu sebentar lalu coba lagi.",
		codeTimeout:      "Layanan gambar terlalu lama merespons. Silakan coba lagi.",
		codeNoImage:      "Layanan gambar tidak mengembalikan foto. Silakan coba lagi.",
		codeProvider:     "Layanan gambar gagal memproses permintaan Anda. Silakan coba lagi.",
		codeUnavailable:  "Fitur ini sedang tidak tersedia.",
		codeInternal:     "Terjadi kesalahan. Silakan coba lagi.",
	},
}

func message(locale, code string) string {
	if m, ok := messages[locale]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	return messages["en"][code]
}
