package validation

import (
	"showroom/internal/domain"
	"showroom/internal/domain/models"

	"github.com/gabriel-vasile/mimetype"
)

// MaxProofSize is the upload limit for proof-of-payment images.
const MaxProofSize = 10 << 20

var allowedProofTypes = []string{"image/jpeg", "image/png"}

// CheckProof sniffs the uploaded bytes and returns the detected MIME type.
func CheckProof(f *models.ProofFile) (string, error) {
	if f == nil || len(f.Content) == 0 {
		return "", domain.ValidationError{Field: "proof_of_payment", Msg: "bukti pembayaran wajib diunggah"}
	}
	size := f.Size
	if size <= 0 {
		size = int64(len(f.Content))
	}
	if size > MaxProofSize || int64(len(f.Content)) > MaxProofSize {
		return "", domain.ValidationError{Field: "proof_of_payment", Msg: "ukuran file maksimal 10MB"}
	}
	mt := mimetype.Detect(f.Content)
	if !mimetype.EqualsAny(mt.String(), allowedProofTypes...) {
		return "", domain.ValidationError{Field: "proof_of_payment", Msg: "file harus berupa gambar JPEG atau PNG"}
	}
	return mt.String(), nil
}
