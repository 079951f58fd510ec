package imagerequest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/PrzemekMalak/serverless-image-handler/apierror"
)

// Sign returns the signature a client must send for path.
func Sign(secret, path string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(path))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature checks the hex HMAC-SHA256 of the request path.
func verifySignature(secret, path, signature string) error {
	if signature == "" {
		return apierror.New(http.StatusBadRequest, apierror.CodeMissingSignature,
			"Query-string requires the signature parameter.")
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return apierror.New(http.StatusForbidden, apierror.CodeSignatureMismatch, "Signature does not match.")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(path))
	want := mac.Sum(nil)

	if !hmac.Equal(got, want) {
		return apierror.New(http.StatusForbidden, apierror.CodeSignatureMismatch, "Signature does not match.")
	}
	return nil
}
