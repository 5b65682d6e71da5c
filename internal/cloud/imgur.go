package cloud

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultImgurBase = "https://api.imgur.com"

// Imgur uploads images anonymously with a registered client id.
type Imgur struct {
	ClientID string
	BaseURL  string // test override; defaults to the real API
	Client   *http.Client
}

// NewImgur returns an uploader with a sane request timeout.
func NewImgur(clientID string) *Imgur {
	return &Imgur{
		ClientID: clientID,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type imgurResponse struct {
	Data struct {
		Link  string `json:"link"`
		Error string `json:"error"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// Upload posts the image and returns the hosted link.
func (i *Imgur) Upload(image []byte) (string, error) {
	base := i.BaseURL
	if base == "" {
		base = defaultImgurBase
	}
	form := url.Values{}
	form.Set("image", base64.StdEncoding.EncodeToString(image))
	form.Set("type", "base64")

	req, err := http.NewRequest(http.MethodPost, base+"/3/image",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Client-ID "+i.ClientID)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := i.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("imgur upload failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed imgurResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("imgur response decode failed: %w", err)
	}
	if !parsed.Success || parsed.Data.Link == "" {
		return "", fmt.Errorf("imgur upload rejected: status %d %s",
			parsed.Status, parsed.Data.Error)
	}
	return parsed.Data.Link, nil
}
