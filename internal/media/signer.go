// Package media issues signed upload authorizations so browsers can upload
// images straight to the media host without ever seeing our API secret.
package media

import (
	"crypto/sha1"
	"encoding/hex"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/devpulse/devpulse/internal/apperror"
)

// Config holds the media host credentials.
type Config struct {
	CloudName     string
	APIKey        string
	APISecret     string
	DefaultFolder string

	// ExtraFolders may be requested besides DefaultFolder.
	ExtraFolders []string
}

// Signature is what the client needs to perform one signed upload.
type Signature struct {
	Signature string `json:"signature"`
	APIKey    string `json:"apiKey"`
	Timestamp int64  `json:"timestamp"`
	CloudName string `json:"cloudName"`
	UploadURL string `json:"uploadUrl"`
	Folder    string `json:"folder"`
}

// Signer computes upload signatures. The host, not the signer, enforces
// expiry and single use.
type Signer struct {
	cfg Config
	now func() time.Time
}

func NewSigner(cfg Config) *Signer {
	return &Signer{cfg: cfg, now: time.Now}
}

// Sign authorizes an upload into folder (DefaultFolder when empty). Only
// DefaultFolder and ExtraFolders can be signed. Missing credentials are a
// configuration error.
func (s *Signer) Sign(folder string) (*Signature, error) {
	if s.cfg.CloudName == "" || s.cfg.APIKey == "" || s.cfg.APISecret == "" {
		return nil, apperror.Misconfigured("Media host credentials are not configured on the server.")
	}
	if folder == "" {
		folder = s.cfg.DefaultFolder
	}
	if folder != s.cfg.DefaultFolder && !slices.Contains(s.cfg.ExtraFolders, folder) {
		return nil, apperror.ValidationFailed("folder", "Uploads to this folder are not allowed.")
	}

	ts := s.now().Unix()
	params := map[string]string{
		"folder":    folder,
		"timestamp": strconv.FormatInt(ts, 10),
	}

	return &Signature{
		Signature: signParams(params, s.cfg.APISecret),
		APIKey:    s.cfg.APIKey,
		Timestamp: ts,
		CloudName: s.cfg.CloudName,
		UploadURL: "https://api.cloudinary.com/v1_1/" + s.cfg.CloudName + "/image/upload",
		Folder:    folder,
	}, nil
}

// signParams is the host's signing scheme: sort keys, join "k=v" pairs with
// "&", append the secret and take the hex SHA-1.
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
