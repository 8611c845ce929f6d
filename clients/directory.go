package clients

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/valyala/fasthttp"
)

// UserLookup is the result of an email lookup against the user service.
type UserLookup struct {
	Exists bool   `json:"exists"`
	AuthID string `json:"authId"`
}

// UserDetail is the directory's view of a user.
type UserDetail struct {
	AuthID    string `json:"authId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl"`
	Role      string `json:"role"`
}

// Directory is the synchronous identity lookup collaborator. Calls that gate
// authorization happen before the local commit; calls that only feed a
// notification happen after it.
type Directory interface {
	LookupByEmail(email string) (*UserLookup, error)
	GetUserByID(authID string) (*UserDetail, error)
	GetUsersByIDs(authIDs []string) ([]UserDetail, error)
}

// HTTPDirectory talks to the external user service over HTTP.
type HTTPDirectory struct {
	baseURL string
	client  *fasthttp.Client
	timeout time.Duration
}

func NewHTTPDirectory(baseURL string) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: baseURL,
		client:  &fasthttp.Client{},
		timeout: 10 * time.Second,
	}
}

func (d *HTTPDirectory) LookupByEmail(email string) (*UserLookup, error) {
	var out UserLookup
	uri := fmt.Sprintf("%s/api/users/lookup?email=%s", d.baseURL, url.QueryEscape(email))
	if err := d.get(uri, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *HTTPDirectory) GetUserByID(authID string) (*UserDetail, error) {
	var out UserDetail
	uri := fmt.Sprintf("%s/api/users/%s", d.baseURL, url.PathEscape(authID))
	if err := d.get(uri, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *HTTPDirectory) GetUsersByIDs(authIDs []string) ([]UserDetail, error) {
	payload, err := json.Marshal(map[string][]string{"authIds": authIDs})
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(d.baseURL + "/api/users/batch")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := d.client.DoTimeout(req, resp, d.timeout); err != nil {
		return nil, fmt.Errorf("user service request failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("user service returned status %d", resp.StatusCode())
	}

	var out []UserDetail
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to decode user service response: %w", err)
	}
	return out, nil
}

func (d *HTTPDirectory) get(uri string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := d.client.DoTimeout(req, resp, d.timeout); err != nil {
		return fmt.Errorf("user service request failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("user service returned status %d", resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode user service response: %w", err)
	}
	return nil
}
