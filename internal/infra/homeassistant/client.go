// Package homeassistant drives garage doors exposed as cover entities by a
// Home Assistant instance.
package homeassistant

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

type Client struct {
	baseURL  string
	token    string
	entities []string
	timeout  time.Duration
}

// NewClient takes the cover entities in the order the skill should number
// them, e.g. cover.left_garage then cover.right_garage.
func NewClient(baseURL, token string, entities []string) *Client {
	// Remove trailing slash if present
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &Client{
		baseURL:  baseURL,
		token:    token,
		entities: entities,
		timeout:  15 * time.Second,
	}
}

// Entity represents a Home Assistant entity
type Entity struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged string         `json:"last_changed"`
}

// Login checks the token by reading every configured cover. Home Assistant
// has no session of its own; the returned session only owns the connections.
func (c *Client) Login(ctx context.Context) (application.DoorSession, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	s := &Session{
		client:     c,
		httpClient: &http.Client{Timeout: c.timeout, Transport: transport},
	}

	for _, entityID := range c.entities {
		door, err := s.loadDoor(ctx, entityID)
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

func (s *Session) loadDoor(ctx context.Context, entityID string) (*Door, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, "/api/states/"+entityID, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", entityID, err)
	}

	var e Entity
	if err := json.Unmarshal(resp, &e); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", entityID, err)
	}

	name := e.EntityID
	if friendlyName, ok := e.Attributes["friendly_name"].(string); ok {
		name = friendlyName
	}

	return &Door{
		session:  s,
		entityID: e.EntityID,
		name:     name,
		state:    coverState(e.State),
	}, nil
}

func (s *Session) callService(ctx context.Context, service, entityID string) error {
	body, err := json.Marshal(map[string]any{"entity_id": entityID})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	if _, err := s.doRequest(ctx, http.MethodPost, "/api/services/cover/"+service, body); err != nil {
		return fmt.Errorf("calling cover.%s: %w", service, err)
	}
	return nil
}

func (s *Session) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var respBody []byte

	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, s.client.baseURL+path, bodyReader)
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		req.Header.Set("Authorization", "Bearer "+s.client.token)
		req.Header.Set("Content-Type", "application/json")

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
			return infra.Permanent(fmt.Errorf("unauthorized: check your Home Assistant token"))
		}

		return infra.CheckStatus("home assistant", resp.StatusCode, respBody)
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return respBody, nil
}

// coverState maps Home Assistant cover states, which already use the
// open/opening/closed/closing vocabulary, and folds the rest into unknown.
func coverState(s string) domain.DoorState {
	switch st := domain.DoorState(s); st {
	case domain.DoorStateOpen, domain.DoorStateOpening, domain.DoorStateClosed, domain.DoorStateClosing:
		return st
	default:
		return domain.DoorStateUnknown
	}
}

type Door struct {
	session  *Session
	entityID string
	name     string
	state    domain.DoorState
}

func (d *Door) Name() string            { return d.name }
func (d *Door) State() domain.DoorState { return d.state }

func (d *Door) Open(ctx context.Context) error {
	return d.session.callService(ctx, "open_cover", d.entityID)
}

func (d *Door) Close(ctx context.Context) error {
	return d.session.callService(ctx, "close_cover", d.entityID)
}
