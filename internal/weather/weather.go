// Package weather provides battlefield wind and optional real-world wind data.
// Live conditions from OpenWeatherMap can seed the starting wind; after that
// the wind shifts per round from the game dice.
package weather

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/talgya/ironhex/internal/entropy"
	"github.com/talgya/ironhex/internal/world"
)

// Strength is the wind force category.
type Strength int

const (
	Calm Strength = iota
	LightGale
	ModerateGale
	StrongGale
	Storm
)

var strengthNames = [...]string{"calm", "light gale", "moderate gale", "strong gale", "storm"}

func (s Strength) String() string {
	if s >= 0 && int(s) < len(strengthNames) {
		return strengthNames[s]
	}
	return "unknown"
}

// Wind is the current battlefield wind. Direction is where the wind blows toward.
type Wind struct {
	Direction world.Facing `json:"direction" msgpack:"direction"`
	Strength  Strength     `json:"strength" msgpack:"strength"`
	Shifting  bool         `json:"shifting" msgpack:"shifting"`
}

func (w Wind) String() string {
	if w.Strength == Calm {
		return "calm"
	}
	return fmt.Sprintf("%s toward %s", w.Strength, w.Direction)
}

// Shift applies the per-round wind change and reports whether anything moved.
// Direction veers on a 1 or 6; strength changes on a 2d6 of 2 or 12.
func (w *Wind) Shift(r entropy.Roller) bool {
	if !w.Shifting {
		return false
	}
	changed := false
	switch r.D6() {
	case 1:
		w.Direction = w.Direction.Rotate(-1)
		changed = true
	case 6:
		w.Direction = w.Direction.Rotate(1)
		changed = true
	}
	switch entropy.Roll2D6(r) {
	case 2:
		if w.Strength > Calm {
			w.Strength--
			changed = true
		}
	case 12:
		if w.Strength < Storm {
			w.Strength++
			changed = true
		}
	}
	return changed
}

// Client fetches live wind data from OpenWeatherMap.
type Client struct {
	apiKey   string
	location string
	baseURL  string
	client   *http.Client

	mu          sync.Mutex
	cached      *Conditions
	cachedAt    time.Time
	cacheTTL    time.Duration
	lastFailAt  time.Time
	failBackoff time.Duration
}

// NewClient creates a weather API client. Returns nil if apiKey is empty.
func NewClient(apiKey, location string) *Client {
	if apiKey == "" {
		return nil
	}
	if location == "" {
		location = "San Diego,US"
	}
	return &Client{
		apiKey:   apiKey,
		location: location,
		baseURL:  "https://api.openweathermap.org/data/2.5/weather",
		client:   &http.Client{Timeout: 10 * time.Second},
		cacheTTL: 5 * time.Minute,
	}
}

// Conditions holds the parsed wind data from the API.
type Conditions struct {
	WindSpeed   float64 `json:"wind_speed"` // m/s
	WindDeg     float64 `json:"wind_deg"`   // Meteorological: where the wind comes from
	Description string  `json:"description"`
}

// Fetch retrieves current conditions, using cache if fresh.
func (c *Client) Fetch() (*Conditions, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.cachedAt) < c.cacheTTL {
		return c.cached, nil
	}

	// Backoff on repeated failures (up to 10 minutes).
	if c.failBackoff > 0 && time.Since(c.lastFailAt) < c.failBackoff {
		if c.cached != nil {
			return c.cached, nil
		}
		return nil, fmt.Errorf("weather API backoff (%s remaining)", c.failBackoff-time.Since(c.lastFailAt))
	}

	conditions, err := c.fetchFromAPI()
	if err != nil {
		c.lastFailAt = time.Now()
		if c.failBackoff == 0 {
			c.failBackoff = 1 * time.Minute
		} else if c.failBackoff < 10*time.Minute {
			c.failBackoff *= 2
		}
		if c.cached != nil {
			return c.cached, nil
		}
		return nil, err
	}

	c.cached = conditions
	c.cachedAt = time.Now()
	c.failBackoff = 0
	return conditions, nil
}

func (c *Client) fetchFromAPI() (*Conditions, error) {
	apiURL := fmt.Sprintf("%s?q=%s&appid=%s&units=metric", c.baseURL, url.QueryEscape(c.location), c.apiKey)

	resp, err := c.client.Get(apiURL)
	if err != nil {
		return nil, fmt.Errorf("weather API call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API error %d: %s", resp.StatusCode, string(body))
	}

	var owm struct {
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
			Deg   float64 `json:"deg"`
		} `json:"wind"`
	}
	if err := json.Unmarshal(body, &owm); err != nil {
		return nil, fmt.Errorf("parse weather: %w", err)
	}

	conditions := &Conditions{WindSpeed: owm.Wind.Speed, WindDeg: owm.Wind.Deg}
	if len(owm.Weather) > 0 {
		conditions.Description = owm.Weather[0].Description
	}
	slog.Debug("weather fetched", "wind_speed", conditions.WindSpeed, "wind_deg", conditions.WindDeg)
	return conditions, nil
}

// MapToWind converts real conditions to battlefield wind. Board north is
// treated as true north.
func MapToWind(c *Conditions, shifting bool) Wind {
	w := Wind{Shifting: shifting}
	if c == nil {
		return w
	}
	// The API reports where wind comes from; fire and smoke travel the other way.
	toward := c.WindDeg + 180
	w.Direction = world.Facing(int(toward/60+0.5) % 6)

	switch {
	case c.WindSpeed < 1:
		w.Strength = Calm
	case c.WindSpeed < 8:
		w.Strength = LightGale
	case c.WindSpeed < 14:
		w.Strength = ModerateGale
	case c.WindSpeed < 21:
		w.Strength = StrongGale
	default:
		w.Strength = Storm
	}
	return w
}
