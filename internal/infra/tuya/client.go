// Package tuya drives Tuya garage door controllers (category ckmkzq) through
// the Tuya cloud API.
package tuya

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"garage-skill/internal/application"
	"garage-skill/internal/domain"
	"garage-skill/internal/infra"
)

const (
	codeSwitch      = "switch_1"
	codeDoorContact = "doorcontact_state"
)

type Client struct {
	clientID  string
	secret    string
	baseURL   string
	deviceIDs []string
	timeout   time.Duration

	mu       sync.RWMutex
	token    string
	expireAt time.Time
}

func NewClient(clientID, secret, region string, deviceIDs []string) *Client {
	baseURL := "https://openapi.tuyaus.com"
	switch strings.ToLower(region) {
	case "eu":
		baseURL = "https://openapi.tuyaeu.com"
	case "cn":
		baseURL = "https://openapi.tuyacn.com"
	case "in":
		baseURL = "https://openapi.tuyain.com"
	}

	return NewClientWithURL(clientID, secret, baseURL, deviceIDs)
}

func NewClientWithURL(clientID, secret, baseURL string, deviceIDs []string) *Client {
	return &Client{
		clientID:  clientID,
		secret:    secret,
		baseURL:   baseURL,
		deviceIDs: deviceIDs,
		timeout:   15 * time.Second,
	}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Result  json.RawMessage `json:"result"`
}

// Login fetches every configured door controller. The access token is cached
// on the client and refreshed shortly before it expires.
func (c *Client) Login(ctx context.Context) (application.DoorSession, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	s := &Session{
		client:     c,
		httpClient: &http.Client{Timeout: c.timeout, Transport: transport},
	}

	for _, id := range c.deviceIDs {
		door, err := s.loadDoor(ctx, id)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.doors = append(s.doors, door)
	}

	return s, nil
}

type Session struct {
	client     *Client
	httpClient *http.Client
	doors      []application.Door
}

func (s *Session) Doors() []application.Door {
	return s.doors
}

func (s *Session) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *Session) loadDoor(ctx context.Context, deviceID string) (*Door, error) {
	result, err := s.call(ctx, http.MethodGet, "/v1.0/devices/"+deviceID, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching device %s: %w", deviceID, err)
	}

	var device struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Online bool   `json:"online"`
		Status []struct {
			Code  string `json:"code"`
			Value any    `json:"value"`
		} `json:"status"`
	}
	if err := json.Unmarshal(result, &device); err != nil {
		return nil, fmt.Errorf("parsing device %s: %w", deviceID, err)
	}

	state := domain.DoorStateUnknown
	for _, st := range device.Status {
		if st.Code != codeDoorContact {
			continue
		}
		if open, ok := st.Value.(bool); ok {
			state = domain.DoorStateClosed
			if open {
				state = domain.DoorStateOpen
			}
		}
	}

	return &Door{
		session:  s,
		deviceID: deviceID,
		name:     device.Name,
		state:    state,
	}, nil
}

func (s *Session) sendSwitch(ctx context.Context, deviceID string, on bool) error {
	body, err := json.Marshal(map[string]any{
		"commands": []map[string]any{{"code": codeSwitch, "value": on}},
	})
	if err != nil {
		return fmt.Errorf("marshaling command: %w", err)
	}

	path := fmt.Sprintf("/v1.0/iot-03/devices/%s/commands", deviceID)
	if _, err := s.call(ctx, http.MethodPost, path, body); err != nil {
		return fmt.Errorf("executing command: %w", err)
	}
	return nil
}

// call performs a signed request and unwraps Tuya's success envelope.
func (s *Session) call(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	resp, err := s.doRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var result apiResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("tuya error: %s", result.Msg)
	}
	return result.Result, nil
}

func (s *Session) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	c := s.client
	token, err := c.ensureToken(ctx, s.httpClient)
	if err != nil {
		return nil, err
	}

	var respBody []byte
	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		req.Header.Set("client_id", c.clientID)
		req.Header.Set("access_token", token)
		req.Header.Set("sign", c.calcSign(timestamp, token, method, path, body))
		req.Header.Set("t", timestamp)
		req.Header.Set("sign_method", "HMAC-SHA256")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		return infra.CheckStatus("tuya", resp.StatusCode, respBody)
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return respBody, nil
}

func (c *Client) ensureToken(ctx context.Context, httpClient *http.Client) (string, error) {
	c.mu.RLock()
	if c.token != "" && time.Now().Add(5*time.Minute).Before(c.expireAt) {
		token := c.token
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Add(5*time.Minute).Before(c.expireAt) {
		return c.token, nil
	}

	timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())
	path := "/v1.0/token?grant_type=1"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}

	req.Header.Set("client_id", c.clientID)
	req.Header.Set("sign", c.calcSign(timestamp, "", http.MethodGet, path, nil))
	req.Header.Set("t", timestamp)
	req.Header.Set("sign_method", "HMAC-SHA256")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}

	var tokenResp struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
		Result  struct {
			AccessToken string `json:"access_token"`
			ExpireTime  int64  `json:"expire_time"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}
	if !tokenResp.Success {
		return "", fmt.Errorf("token error: %s", tokenResp.Msg)
	}

	c.token = tokenResp.Result.AccessToken
	c.expireAt = time.Now().Add(time.Duration(tokenResp.Result.ExpireTime) * time.Second)

	return c.token, nil
}

func (c *Client) calcSign(timestamp, token, method, path string, body []byte) string {
	str := c.clientID + token + timestamp + stringToSign(method, path, body)
	h := hmac.New(sha256.New, []byte(c.secret))
	h.Write([]byte(str))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

func stringToSign(method, path string, body []byte) string {
	bodyHash := sha256.Sum256(body)
	return method + "\n" + hex.EncodeToString(bodyHash[:]) + "\n\n" + path
}

// Door is a relay-driven opener with a contact sensor. The sensor only tells
// open from closed, so opening and closing are never reported.
type Door struct {
	session  *Session
	deviceID string
	name     string
	state    domain.DoorState
}

func (d *Door) Name() string            { return d.name }
func (d *Door) State() domain.DoorState { return d.state }

func (d *Door) Open(ctx context.Context) error {
	return d.session.sendSwitch(ctx, d.deviceID, true)
}

func (d *Door) Close(ctx context.Context) error {
	return d.session.sendSwitch(ctx, d.deviceID, false)
}
