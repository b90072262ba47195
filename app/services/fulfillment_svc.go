package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/openeire/openeire-api/app/configs"
	"github.com/openeire/openeire-api/app/models"
	"github.com/openeire/openeire-api/app/repositories"
	"github.com/rs/zerolog/log"
)

const (
	prodigiSizing    = "fillPrintArea"
	prodigiPrintArea = "default"
)

type prodigiAsset struct {
	PrintArea string `json:"printArea"`
	URL       string `json:"url"`
}

type prodigiItem struct {
	SKU    string         `json:"sku"`
	Copies int            `json:"copies"`
	Sizing string         `json:"sizing"`
	Assets []prodigiAsset `json:"assets"`
}

type prodigiAddress struct {
	Line1           string `json:"line1"`
	Line2           string `json:"line2,omitempty"`
	PostalOrZipCode string `json:"postalOrZipCode"`
	CountryCode     string `json:"countryCode"`
	TownOrCity      string `json:"townOrCity"`
	StateOrCounty   string `json:"stateOrCounty,omitempty"`
}

type prodigiRecipient struct {
	Name    string         `json:"name"`
	Email   string         `json:"email,omitempty"`
	Address prodigiAddress `json:"address"`
}

type prodigiOrderRequest struct {
	ShippingMethod string           `json:"shippingMethod"`
	Recipient      prodigiRecipient `json:"recipient"`
	Items          []prodigiItem    `json:"items"`
	IdempotencyKey string           `json:"idempotencyKey"`
}

type prodigiOrderResponse struct {
	Outcome string `json:"outcome"`
	Order   struct {
		ID string `json:"id"`
	} `json:"order"`
}

type FulfillmentResult struct {
	Reference string
	Outcome   string
	// UnreachableAssets lists asset URLs the partner cannot download.
	UnreachableAssets []string
}

type FulfillmentRetryPublisher interface {
	PublishFulfillmentRetry(ctx context.Context, orderNumber, reason string) error
}

type OrderFulfiller interface {
	Dispatch(ctx context.Context, order *models.Order) (*FulfillmentResult, error)
}

// FulfillmentService submits physical order lines to Prodigi.
type FulfillmentService struct {
	client  *http.Client
	cfg     configs.ProdigiConfig
	catalog repositories.CatalogRepository
	orders  repositories.OrderRepository
	retries FulfillmentRetryPublisher
}

func NewFulfillmentService(
	cfg configs.ProdigiConfig,
	catalog repositories.CatalogRepository,
	orders repositories.OrderRepository,
	retries FulfillmentRetryPublisher,
) *FulfillmentService {
	return &FulfillmentService{
		client:  &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		catalog: catalog,
		orders:  orders,
		retries: retries,
	}
}

// SubmitFulfillment returns (nil, nil) when the order has nothing to print.
// Physical lines that all fail to resolve yield ErrNothingToFulfill.
func (s *FulfillmentService) SubmitFulfillment(ctx context.Context, order *models.Order) (*FulfillmentResult, error) {
	items, unreachable, err := s.buildItems(ctx, order)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		if order.HasPhysicalItems() {
			log.Error().Str("order_number", order.OrderNumber).Msg("FulfillmentService: order has physical items but none could be submitted")
			return nil, fmt.Errorf("%w: order %s", ErrNothingToFulfill, order.OrderNumber)
		}
		log.Info().Str("order_number", order.OrderNumber).Msg("FulfillmentService: no physical items, skipping partner call")
		return nil, nil
	}
	if s.cfg.APIKey == "" {
		return nil, ErrFulfillmentNotConfigured
	}

	payload := prodigiOrderRequest{
		ShippingMethod: partnerShippingMethod(order.ShippingMethod),
		Recipient: prodigiRecipient{
			Name:  order.FullName,
			Email: order.Email,
			Address: prodigiAddress{
				Line1:           order.StreetAddress1,
				Line2:           strings.TrimSpace(order.StreetAddress2),
				PostalOrZipCode: order.Postcode,
				CountryCode:     order.Country,
				TownOrCity:      order.Town,
				StateOrCounty:   order.County,
			},
		},
		Items:          items,
		IdempotencyKey: order.OrderNumber,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prodigi order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.cfg.BaseURL, "/")+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", order.OrderNumber)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request to prodigi: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read prodigi response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().
			Str("order_number", order.OrderNumber).
			Int("status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("FulfillmentService: prodigi rejected order")
		return nil, &FulfillmentError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed prodigiOrderResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse prodigi response: %w", err)
	}

	log.Info().
		Str("order_number", order.OrderNumber).
		Str("prodigi_order_id", parsed.Order.ID).
		Str("outcome", parsed.Outcome).
		Msg("FulfillmentService: prodigi order created")

	return &FulfillmentResult{
		Reference:         parsed.Order.ID,
		Outcome:           parsed.Outcome,
		UnreachableAssets: unreachable,
	}, nil
}

// Dispatch submits the order and records the outcome on it. A failed
// submission is queued for an out-of-band retry.
func (s *FulfillmentService) Dispatch(ctx context.Context, order *models.Order) (*FulfillmentResult, error) {
	result, err := s.submitAndRecord(ctx, order)
	if err == nil {
		return result, nil
	}

	if s.retries != nil {
		if pubErr := s.retries.PublishFulfillmentRetry(ctx, order.OrderNumber, err.Error()); pubErr != nil {
			log.Error().Err(pubErr).Str("order_number", order.OrderNumber).Msg("FulfillmentService: failed to queue fulfillment retry")
		}
	}
	return nil, err
}

// Redispatch re-submits a persisted order. The order number is the
// idempotency key, so the partner never creates a second order.
func (s *FulfillmentService) Redispatch(ctx context.Context, orderNumber string) (*FulfillmentResult, error) {
	order, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderNumber, err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderNumber)
	}
	if order.FulfillmentStatus == models.FulfillmentSubmitted {
		log.Info().Str("order_number", orderNumber).Msg("FulfillmentService: order already submitted")
		return &FulfillmentResult{Reference: order.FulfillmentReference}, nil
	}
	return s.submitAndRecord(ctx, order)
}

func (s *FulfillmentService) submitAndRecord(ctx context.Context, order *models.Order) (*FulfillmentResult, error) {
	result, err := s.SubmitFulfillment(ctx, order)
	if err != nil {
		s.recordStatus(ctx, order.OrderNumber, models.FulfillmentFailed, "")
		return nil, err
	}
	if result == nil {
		s.recordStatus(ctx, order.OrderNumber, models.FulfillmentNotRequired, "")
		return nil, nil
	}
	s.recordStatus(ctx, order.OrderNumber, models.FulfillmentSubmitted, result.Reference)
	return result, nil
}

func (s *FulfillmentService) recordStatus(ctx context.Context, orderNumber string, status models.FulfillmentStatus, reference string) {
	if err := s.orders.UpdateFulfillment(ctx, orderNumber, status, reference); err != nil {
		log.Error().Err(err).Str("order_number", orderNumber).Str("status", string(status)).Msg("FulfillmentService: failed to record fulfillment status")
	}
}

func (s *FulfillmentService) buildItems(ctx context.Context, order *models.Order) ([]prodigiItem, []string, error) {
	var items []prodigiItem
	var unreachable []string

	for _, item := range order.Items {
		if !item.ProductType.IsPhysical() {
			continue
		}

		variant, err := s.catalog.FindVariantByID(ctx, item.ProductID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load variant %d: %w", item.ProductID, err)
		}
		if variant == nil || variant.Photo == nil {
			log.Error().Str("order_number", order.OrderNumber).Uint("variant_id", item.ProductID).Msg("FulfillmentService: variant or source photo missing, skipping line")
			continue
		}

		sku := item.ExternalSKU
		if sku == "" {
			sku = variant.ExternalSKU
		}
		if sku == "" {
			log.Warn().Str("order_number", order.OrderNumber).Uint("variant_id", variant.ID).Msg("FulfillmentService: variant has no external sku, skipping line")
			continue
		}

		assetURL := s.assetURL(variant.Photo.HighResFile)
		if !isPublicURL(assetURL) {
			unreachable = append(unreachable, assetURL)
			log.Warn().Str("order_number", order.OrderNumber).Str("url", assetURL).Msg("FulfillmentService: asset url is not publicly reachable, prodigi cannot download it")
		}

		items = append(items, prodigiItem{
			SKU:    sku,
			Copies: item.Quantity,
			Sizing: prodigiSizing,
			Assets: []prodigiAsset{{PrintArea: prodigiPrintArea, URL: assetURL}},
		})
	}
	return items, unreachable, nil
}

func (s *FulfillmentService) assetURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.cfg.SiteURL + path
}

func isPublicURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast())
	}
	return true
}

func partnerShippingMethod(method models.ShippingMethod) string {
	m := string(method)
	if m == "" {
		m = string(models.ShippingBudget)
	}
	r := []rune(m)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
