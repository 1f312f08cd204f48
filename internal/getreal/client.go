// Package getreal talks to the off-chain get-real verification service that issues
// email-ownership signatures and data-storage keys.
package getreal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/pkg/logger"
)

const (
	pathSign         = "/v1/sign"
	pathStoreData    = "/v1/data/store"
	pathVerifyDID    = "/v1/verify/did"
	pathVerifyData   = "/v1/data/verify"
	pathVerifyCount  = "/v1/data/verify-count"
	defaultTimeout   = 10 * time.Second
	maxErrorBodySize = 512
)

// Service is the part of the get-real API the relay depends on.
type Service interface {
	EmailSignature(ctx context.Context, email, didAddress, tag string) (string, error)
	StoreDataKey(ctx context.Context, email, itemType, tag string) (map[string]any, error)
}

type Config struct {
	BaseURL       string
	ServiceAPIKey string
	ProjectAPIKey string
	Timeout       time.Duration
}

type Client struct {
	baseURL       string
	serviceAPIKey string
	projectAPIKey string
	http          *http.Client
	log           *slog.Logger
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		serviceAPIKey: cfg.ServiceAPIKey,
		projectAPIKey: cfg.ProjectAPIKey,
		http:          &http.Client{Timeout: timeout},
		log:           logger.With("component", "getreal"),
	}
}

type signRequest struct {
	Email      string `json:"email"`
	DIDAddress string `json:"did_address"`
	Tag        string `json:"tag"`
}

type signResponse struct {
	Data struct {
		Signature string `json:"signature"`
	} `json:"data"`
}

// EmailSignature asks the service to attest that email controls didAddress.
func (c *Client) EmailSignature(ctx context.Context, email, didAddress, tag string) (string, error) {
	var resp signResponse
	if err := c.post(ctx, pathSign, signRequest{Email: email, DIDAddress: didAddress, Tag: tag}, &resp); err != nil {
		return "", err
	}
	if resp.Data.Signature == "" {
		return "", apperrors.New(apperrors.ErrUpstream, "get-real returned no email signature", nil)
	}
	return resp.Data.Signature, nil
}

type storeRequest struct {
	Email    string `json:"email"`
	ItemType string `json:"item_type"`
	Tag      string `json:"tag"`
}

// StoreDataKey registers itemType for email so later storage writes can be verified.
func (c *Client) StoreDataKey(ctx context.Context, email, itemType, tag string) (map[string]any, error) {
	out := map[string]any{}
	if err := c.post(ctx, pathStoreData, storeRequest{Email: email, ItemType: itemType, Tag: tag}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type verifyRequest struct {
	Address       string `json:"address"`
	ExpectedCount *int   `json:"expected_count,omitempty"`
	Tag           string `json:"tag"`
}

func (c *Client) VerifyDID(ctx context.Context, address, tag string) (map[string]any, error) {
	return c.verify(ctx, pathVerifyDID, verifyRequest{Address: address, Tag: tag})
}

func (c *Client) VerifyStorage(ctx context.Context, address, tag string) (map[string]any, error) {
	return c.verify(ctx, pathVerifyData, verifyRequest{Address: address, Tag: tag})
}

func (c *Client) VerifyStorageCount(ctx context.Context, address string, expected int, tag string) (map[string]any, error) {
	return c.verify(ctx, pathVerifyCount, verifyRequest{Address: address, ExpectedCount: &expected, Tag: tag})
}

func (c *Client) verify(ctx context.Context, path string, req verifyRequest) (map[string]any, error) {
	out := map[string]any{}
	if err := c.post(ctx, path, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if c.baseURL == "" {
		return apperrors.New(apperrors.ErrUpstream, "get-real base url is not configured", nil)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.New(apperrors.ErrInternal, "encode get-real request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperrors.New(apperrors.ErrInternal, "build get-real request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("APIKEY", c.serviceAPIKey)
	req.Header.Set("P-APIKEY", c.projectAPIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.New(apperrors.ErrUpstream, "get-real "+path+" unreachable", err)
	}
	defer resp.Body.Close()
	c.log.Debug("get-real call", "path", path, "status", resp.StatusCode, "elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return apperrors.New(apperrors.ErrUpstream,
			fmt.Sprintf("get-real %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.New(apperrors.ErrUpstream, "decode get-real "+path+" response", err)
	}
	return nil
}
