// Package vehicle calls the DVLA Vehicle Enquiry Service.
package vehicle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tempcover/backend/internal/domain/vehicle"
	"github.com/tempcover/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxDVLAResponseSize = 64 << 10

// dvlaVehicle is the Vehicle Enquiry response body
type dvlaVehicle struct {
	RegistrationNumber string `json:"registrationNumber"`
	Make               string `json:"make"`
	Model              string `json:"model"`
	YearOfManufacture  int    `json:"yearOfManufacture"`
	Colour             string `json:"colour"`
	FuelType           string `json:"fuelType"`
	EngineCapacity     int    `json:"engineCapacity"`
	TaxStatus          string `json:"taxStatus"`
	MotStatus          string `json:"motStatus"`
}

// DVLAClient implements vehicle.Registry against the DVLA API
type DVLAClient struct {
	cfg        config.VehicleConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a DVLAClient
type Option func(*DVLAClient)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *DVLAClient) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *DVLAClient) {
		c.httpClient = hc
	}
}

// NewDVLAClient creates a client. The API key is checked per lookup.
func NewDVLAClient(cfg config.VehicleConfig, opts ...Option) *DVLAClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &DVLAClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup fetches a vehicle. Unknown registrations return
// vehicle.ErrVehicleNotFound; every other failure wraps vehicle.ErrUpstream.
func (c *DVLAClient) Lookup(ctx context.Context, registration string) (*vehicle.Summary, error) {
	if err := c.cfg.Require(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"registrationNumber": registration})
	if err != nil {
		return nil, fmt.Errorf("dvla: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("dvla: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("DVLA request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", vehicle.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDVLAResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", vehicle.ErrUpstream, err)
	}

	c.logger.Debug("DVLA lookup",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, vehicle.ErrVehicleNotFound
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: HTTP %d", vehicle.ErrUpstream, resp.StatusCode)
	}

	var v dvlaVehicle
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", vehicle.ErrUpstream, err)
	}
	if v.Make == "" && v.RegistrationNumber == "" {
		return nil, fmt.Errorf("%w: empty vehicle record", vehicle.ErrUpstream)
	}

	return toSummary(registration, v), nil
}

func toSummary(registration string, v dvlaVehicle) *vehicle.Summary {
	// Casers keep state and cannot be shared between goroutines.
	titler := cases.Title(language.BritishEnglish)
	reg := strings.ToUpper(strings.TrimSpace(v.RegistrationNumber))
	if reg == "" {
		reg = registration
	}
	return &vehicle.Summary{
		Registration:   reg,
		Make:           vehicle.DisplayMake(v.Make),
		Model:          strings.TrimSpace(v.Model),
		Year:           v.YearOfManufacture,
		Colour:         titler.String(strings.ToLower(strings.TrimSpace(v.Colour))),
		FuelType:       titler.String(strings.ToLower(strings.TrimSpace(v.FuelType))),
		EngineCapacity: v.EngineCapacity,
		TaxStatus:      strings.TrimSpace(v.TaxStatus),
		MotStatus:      strings.TrimSpace(v.MotStatus),
	}
}

// Ensure DVLAClient implements vehicle.Registry
var _ vehicle.Registry = (*DVLAClient)(nil)
