// Package myq talks to the Chamberlain MyQ cloud API.
package myq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"garage-skill/internal/application"
	"garage-skill/internal/domain"
	"garage-skill/internal/infra"
)

const (
	DefaultBaseURL = "https://api.myqdevice.com"

	applicationID = "JVM/G9Nwih5BwKgNCjLxiFUQxQijAebyyg8QUHr7JOrP+tuPb8iHfRHKwTmDzHOu"
	userAgent     = "garage-skill"
	familyGarage  = "garagedoor"
)

type Client struct {
	userName string
	password string
	baseURL  string
	timeout  time.Duration
	retry    infra.RetryConfig
}

func NewClient(userName, password string) *Client {
	return NewClientWithURL(userName, password, DefaultBaseURL)
}

func NewClientWithURL(userName, password, baseURL string) *Client {
	return &Client{
		userName: userName,
		password: password,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		timeout:  15 * time.Second,
		retry:    infra.DefaultRetryConfig(),
	}
}

// Login authenticates and loads the account's garage doors. Each login gets
// its own connection pool, released by Session.Close.
func (c *Client) Login(ctx context.Context) (application.DoorSession, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	s := &Session{
		client:     c,
		httpClient: &http.Client{Timeout: c.timeout, Transport: transport},
	}

	if err := s.login(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.loadAccount(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.loadDoors(ctx); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

type Session struct {
	client     *Client
	httpClient *http.Client
	token      string
	accountID  string
	doors      []application.Door
}

func (s *Session) Doors() []application.Door {
	return s.doors
}

func (s *Session) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *Session) login(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{
		"Username": s.client.userName,
		"Password": s.client.password,
	})

	resp, err := s.doRequest(ctx, http.MethodPost, "/api/v5/Login", body)
	if err != nil {
		return fmt.Errorf("logging in to MyQ: %w", err)
	}

	var result struct {
		SecurityToken string `json:"SecurityToken"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("parsing login response: %w", err)
	}
	if result.SecurityToken == "" {
		return fmt.Errorf("logging in to MyQ: no security token returned")
	}

	s.token = result.SecurityToken
	return nil
}

func (s *Session) loadAccount(ctx context.Context) error {
	resp, err := s.doRequest(ctx, http.MethodGet, "/api/v5/My?expand=account", nil)
	if err != nil {
		return fmt.Errorf("fetching account: %w", err)
	}

	var result struct {
		Account struct {
			ID string `json:"Id"`
		} `json:"Account"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("parsing account: %w", err)
	}
	if result.Account.ID == "" {
		return fmt.Errorf("fetching account: no account id returned")
	}

	s.accountID = result.Account.ID
	return nil
}

func (s *Session) loadDoors(ctx context.Context) error {
	path := fmt.Sprintf("/api/v5.1/Accounts/%s/Devices", s.accountID)
	resp, err := s.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("fetching devices: %w", err)
	}

	var result struct {
		Items []struct {
			SerialNumber string `json:"serial_number"`
			DeviceFamily string `json:"device_family"`
			Name         string `json:"name"`
			State        struct {
				DoorState string `json:"door_state"`
				Online    bool   `json:"online"`
			} `json:"state"`
		} `json:"items"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("parsing devices: %w", err)
	}

	s.doors = make([]application.Door, 0, len(result.Items))
	for _, item := range result.Items {
		if item.DeviceFamily != familyGarage {
			continue
		}
		state := domain.DoorState(item.State.DoorState)
		if state == "" {
			state = domain.DoorStateUnknown
		}
		s.doors = append(s.doors, &Door{
			session: s,
			serial:  item.SerialNumber,
			name:    item.Name,
			state:   state,
		})
	}

	return nil
}

func (s *Session) action(ctx context.Context, serial string, cmd domain.Command) error {
	body, _ := json.Marshal(map[string]string{"action_type": string(cmd)})
	path := fmt.Sprintf("/api/v5.1/Accounts/%s/Devices/%s/Actions", s.accountID, serial)

	if _, err := s.doRequest(ctx, http.MethodPut, path, body); err != nil {
		return fmt.Errorf("sending %s action: %w", cmd, err)
	}
	return nil
}

func (s *Session) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var respBody []byte

	retryErr := infra.WithRetry(ctx, s.client.retry, func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, s.client.baseURL+path, bodyReader)
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		req.Header.Set("MyQApplicationId", applicationID)
		req.Header.Set("User-Agent", userAgent)
		if s.token != "" {
			req.Header.Set("SecurityToken", s.token)
		}
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

		if resp.StatusCode == http.StatusUnauthorized {
			return infra.Permanent(fmt.Errorf("unauthorized: check your MyQ user name and password"))
		}

		return infra.CheckStatus("MyQ", resp.StatusCode, respBody)
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return respBody, nil
}

// Door is a MyQ garage door opener. Its state is the one reported at login.
type Door struct {
	session *Session
	serial  string
	name    string
	state   domain.DoorState
}

func (d *Door) Name() string            { return d.name }
func (d *Door) State() domain.DoorState { return d.state }

func (d *Door) Open(ctx context.Context) error {
	return d.session.action(ctx, d.serial, domain.CommandOpen)
}

func (d *Door) Close(ctx context.Context) error {
	return d.session.action(ctx, d.serial, domain.CommandClose)
}
