package compute

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"editorcore/internal/domain"
)

// SignatureHeader carries "sha256=<hex hmac of the body>".
const SignatureHeader = "X-Webhook-Signature"

const maxNotificationBytes = 4 << 20

// File is one produced artifact.
type File struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Type     string `json:"type,omitempty"`
}

// OutputData groups artifacts the way the provider reports them.
type OutputData struct {
	Images []File `json:"images"`
	Gifs   []File `json:"gifs"`
	Files  []File `json:"files"`
}

type Output struct {
	NodeID string     `json:"node_id,omitempty"`
	Data   OutputData `json:"data"`
}

// Notification is the webhook body sent when a run changes state.
type Notification struct {
	RunID   string   `json:"run_id"`
	Status  string   `json:"status"`
	Outputs []Output `json:"outputs"`
	Error   string   `json:"error,omitempty"`
}

// Files flattens every artifact in provider order.
func (n *Notification) Files() []File {
	var out []File
	for _, o := range n.Outputs {
		out = append(out, o.Data.Images...)
		out = append(out, o.Data.Gifs...)
		out = append(out, o.Data.Files...)
	}
	return out
}

// Validator authenticates and parses webhook requests. An empty secret
// disables signature checks.
type Validator struct {
	secret []byte
}

func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// Enabled reports whether signatures are verified.
func (v *Validator) Enabled() bool {
	return len(v.secret) > 0
}

// Validate reads the request body, checks its signature and decodes it.
func (v *Validator) Validate(r *http.Request) (*Notification, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrMalformedPayload, err)
	}
	if v.Enabled() && !v.verify(body, r.Header.Get(SignatureHeader)) {
		return nil, domain.ErrInvalidSignature
	}

	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	n.RunID = strings.TrimSpace(n.RunID)
	n.Status = strings.ToLower(strings.TrimSpace(n.Status))
	if n.RunID == "" {
		return nil, fmt.Errorf("%w: run_id is required", domain.ErrMalformedPayload)
	}
	if n.Status == "" {
		return nil, fmt.Errorf("%w: status is required", domain.ErrMalformedPayload)
	}
	return &n, nil
}

func (v *Validator) verify(body []byte, header string) bool {
	got, ok := strings.CutPrefix(strings.TrimSpace(header), "sha256=")
	if !ok {
		return false
	}
	sig, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	return hmac.Equal(sig, Sign(v.secret, body))
}

// Sign returns the HMAC-SHA256 of body.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// SignatureValue formats Sign for the signature header.
func SignatureValue(secret, body []byte) string {
	return "sha256=" + hex.EncodeToString(Sign(secret, body))
}
